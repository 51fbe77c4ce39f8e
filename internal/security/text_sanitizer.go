// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は管理者が入力したサイト文言からHTMLを取り除く。
// サイト文言はすべてプレーンテキストとして扱い、マークアップは保存しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
type TextSanitizer interface {
	// Clean は文字列から全てのHTMLタグを除去し、前後の空白を取り除いて返す。
	// タグの中身のテキストは残す。script, style要素は中身ごと除去される。
	Clean(s string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxCleanPasses はエンティティの多重エンコードを剥がす最大回数。
const maxCleanPasses = 4

// Clean は文字列をプレーンテキスト化する。
// StrictPolicyは&や引用符をエスケープして返すため、保存用に元の文字へ戻す。
// 戻した結果に &lt;script&gt; 由来のタグが現れないよう、出力が変わらなくなるまで
// 除去と復元を繰り返す。収束しない入力は空文字列にする。
func (s *textSanitizer) Clean(in string) string {
	out := in
	for i := 0; i < maxCleanPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(out)))
		if next == out {
			return out
		}
		out = next
	}
	return ""
}
