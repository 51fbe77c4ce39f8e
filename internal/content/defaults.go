package content

import "github.com/hitoshi/sitecms/internal/model"

// DefaultSiteContent はサイトコンテンツが未作成のときに使う初期文言を返す。
func DefaultSiteContent() model.SiteContent {
	return model.SiteContent{
		ID:          model.SiteContentID,
		CompanyName: "החברה שלי",
		HomeContent: model.HomeContent{
			Title:       "ברוכים הבאים לחברה שלי",
			Subtitle:    "בונים את הטכנולוגיה של המחר היום",
			Description: "אנחנו חברת טכנולוגיה מובילה המתמחה בפתרונות חדשניים שמשנים עסקים ומניעים צמיחה.",
			HeroImage:   "https://images.pexels.com/photos/3184291/pexels-photo-3184291.jpeg?auto=compress&cs=tinysrgb&w=1200&h=600&fit=crop",
		},
		AboutContent: model.AboutContent{
			Title:       "אודות החברה שלנו",
			Description: "נוסדה בשנת 2020, החברה שלנו נמצאת בחזית החדשנות הטכנולוגית.",
			Mission:     "להעצים עסקים באמצעות פתרונות טכנולוגיים חדשניים המניעים יעילות, צמיחה והצלחה.",
			Vision:      "להיות המובילה העולמית בטכנולוגיה טרנספורמטיבית, ליצור עולם מחובר שבו עסקים משגשגים.",
		},
		ContactContent: model.ContactContent{
			Title:   "צור קשר",
			Email:   "contact@mycompany.co.il",
			Phone:   "+972-50-123-4567",
			Address: "רחוב החדשנות 123, תל אביב, ישראל",
			SocialLinks: model.SocialLinks{
				Twitter:  "https://twitter.com/mycompany",
				LinkedIn: "https://linkedin.com/company/mycompany",
				Facebook: "https://facebook.com/mycompany",
			},
		},
		Version: 1,
	}
}
