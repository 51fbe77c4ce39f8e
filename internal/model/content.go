package model

import "time"

// SiteContentID はサイトコンテンツの唯一の行ID。
const SiteContentID = 1

// HomeContent はトップページの文言。
type HomeContent struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	HeroImage   string `json:"heroImage"`
}

// AboutContent は会社概要ページの文言。
type AboutContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Mission     string `json:"mission"`
	Vision      string `json:"vision"`
}

// SocialLinks はSNSへのリンク。
type SocialLinks struct {
	Twitter  string `json:"twitter"`
	LinkedIn string `json:"linkedin"`
	Facebook string `json:"facebook"`
}

// ContactContent はお問い合わせページの文言。
type ContactContent struct {
	Title       string      `json:"title"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	SocialLinks SocialLinks `json:"socialLinks"`
}

// Editor はコンテンツを最後に更新したユーザーの表示用情報。
type Editor struct {
	ID    string
	Name  string
	Email string
}

// SiteContent はサイト全体で1件だけ存在する編集可能な文言ドキュメント。
// UpdatedByID はユーザーへの弱参照で、ユーザー削除時はnilになる。
// UpdatedBy は読み出し時に解決された表示用情報。
type SiteContent struct {
	ID             int
	CompanyName    string
	HomeContent    HomeContent
	AboutContent   AboutContent
	ContactContent ContactContent
	UpdatedByID    *string
	UpdatedBy      *Editor
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HomeContentPatch はトップページ文言の部分更新。nilのフィールドは変更しない。
type HomeContentPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Subtitle    *string `json:"subtitle" validate:"omitempty,max=300"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	HeroImage   *string `json:"heroImage" validate:"omitempty,max=2048"`
}

// AboutContentPatch は会社概要文言の部分更新。
type AboutContentPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Mission     *string `json:"mission" validate:"omitempty,max=2000"`
	Vision      *string `json:"vision" validate:"omitempty,max=2000"`
}

// SocialLinksPatch はSNSリンクの部分更新。
type SocialLinksPatch struct {
	Twitter  *string `json:"twitter" validate:"omitempty,max=2048"`
	LinkedIn *string `json:"linkedin" validate:"omitempty,max=2048"`
	Facebook *string `json:"facebook" validate:"omitempty,max=2048"`
}

// ContactContentPatch はお問い合わせ文言の部分更新。
type ContactContentPatch struct {
	Title       *string           `json:"title" validate:"omitempty,max=200"`
	Email       *string           `json:"email" validate:"omitempty,max=254"`
	Phone       *string           `json:"phone" validate:"omitempty,max=50"`
	Address     *string           `json:"address" validate:"omitempty,max=500"`
	SocialLinks *SocialLinksPatch `json:"socialLinks"`
}

// SiteContentPatch はサイトコンテンツ全体の部分更新。
// ネストしたブロックはキー単位でマージされ、ブロック全体の置き換えは行わない。
// Version が指定された場合は保存済みのバージョンと一致するときだけ適用する。
type SiteContentPatch struct {
	CompanyName    *string              `json:"companyName" validate:"omitempty,max=200"`
	HomeContent    *HomeContentPatch    `json:"homeContent"`
	AboutContent   *AboutContentPatch   `json:"aboutContent"`
	ContactContent *ContactContentPatch `json:"contactContent"`
	Version        *int                 `json:"version"`
}

// IsEmpty は更新対象のフィールドが1つも無いかを返す。
func (p *SiteContentPatch) IsEmpty() bool {
	return p.CompanyName == nil && p.HomeContent == nil && p.AboutContent == nil && p.ContactContent == nil
}

// ApplyTo はパッチをSiteContentにマージする。
func (p *SiteContentPatch) ApplyTo(c *SiteContent) {
	setIfPresent(&c.CompanyName, p.CompanyName)

	if h := p.HomeContent; h != nil {
		setIfPresent(&c.HomeContent.Title, h.Title)
		setIfPresent(&c.HomeContent.Subtitle, h.Subtitle)
		setIfPresent(&c.HomeContent.Description, h.Description)
		setIfPresent(&c.HomeContent.HeroImage, h.HeroImage)
	}

	if a := p.AboutContent; a != nil {
		setIfPresent(&c.AboutContent.Title, a.Title)
		setIfPresent(&c.AboutContent.Description, a.Description)
		setIfPresent(&c.AboutContent.Mission, a.Mission)
		setIfPresent(&c.AboutContent.Vision, a.Vision)
	}

	if ct := p.ContactContent; ct != nil {
		setIfPresent(&c.ContactContent.Title, ct.Title)
		setIfPresent(&c.ContactContent.Email, ct.Email)
		setIfPresent(&c.ContactContent.Phone, ct.Phone)
		setIfPresent(&c.ContactContent.Address, ct.Address)
		if s := ct.SocialLinks; s != nil {
			setIfPresent(&c.ContactContent.SocialLinks.Twitter, s.Twitter)
			setIfPresent(&c.ContactContent.SocialLinks.LinkedIn, s.LinkedIn)
			setIfPresent(&c.ContactContent.SocialLinks.Facebook, s.Facebook)
		}
	}
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// EachField は指定されている文字列フィールドをJSONパス付きで列挙する。
// サニタイズや入力検証でフィールドを書き換える用途に使う。
func (p *SiteContentPatch) EachField(fn func(path string, v *string)) {
	visit := func(path string, v *string) {
		if v != nil {
			fn(path, v)
		}
	}

	visit("companyName", p.CompanyName)

	if h := p.HomeContent; h != nil {
		visit("homeContent.title", h.Title)
		visit("homeContent.subtitle", h.Subtitle)
		visit("homeContent.description", h.Description)
		visit("homeContent.heroImage", h.HeroImage)
	}

	if a := p.AboutContent; a != nil {
		visit("aboutContent.title", a.Title)
		visit("aboutContent.description", a.Description)
		visit("aboutContent.mission", a.Mission)
		visit("aboutContent.vision", a.Vision)
	}

	if ct := p.ContactContent; ct != nil {
		visit("contactContent.title", ct.Title)
		visit("contactContent.email", ct.Email)
		visit("contactContent.phone", ct.Phone)
		visit("contactContent.address", ct.Address)
		if s := ct.SocialLinks; s != nil {
			visit("contactContent.socialLinks.twitter", s.Twitter)
			visit("contactContent.socialLinks.linkedin", s.LinkedIn)
			visit("contactContent.socialLinks.facebook", s.Facebook)
		}
	}
}
