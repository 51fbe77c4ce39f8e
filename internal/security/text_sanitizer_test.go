package security

import (
	"strings"
	"testing"
)

func TestTextSanitizer_Clean(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "ברוכים הבאים לחברה שלי", "ברוכים הבאים לחברה שלי"},
		{"タグを除去して中身を残す", "<b>Acme</b> Corp", "Acme Corp"},
		{"scriptは中身ごと除去", "Hello<script>alert(1)</script>", "Hello"},
		{"イベント属性付きタグ", `<img src=x onerror="alert(1)">Logo`, "Logo"},
		{"アンパサンドは元に戻す", "Smith & Sons", "Smith & Sons"},
		{"引用符は元に戻す", `"Quoted" 'text'`, `"Quoted" 'text'`},
		{"前後の空白を除去", "  padded  ", "padded"},
		{"空文字列", "", ""},
		{"タグのみ", "<p></p>", ""},
		{"エンコードされたscript", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"エンコードされたimg", "&lt;img src=x onerror=alert(1)&gt;", ""},
		{"エンコードされたタグの中身は残す", "&lt;b&gt;Acme&lt;/b&gt; Corp", "Acme Corp"},
		{"二重エンコード", "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;", ""},
		{"不等号は文字として残す", "1 < 2 & 3 > 2", "1 < 2 & 3 > 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	inputs := []string{
		"<em>Tel</em>: +972-50-123-4567",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&lt;img src=x onerror=alert(1)&gt;",
		"Smith &amp; Sons",
		"&amp;amp;amp;amp;amp;",
	}
	for _, in := range inputs {
		once := s.Clean(in)
		if twice := s.Clean(once); twice != once {
			t.Errorf("Clean is not idempotent for %q: %q -> %q", in, once, twice)
		}
		if lower := strings.ToLower(once); strings.Contains(lower, "<script") || strings.Contains(lower, "<img") {
			t.Errorf("Clean(%q) = %q still contains markup", in, once)
		}
	}
}

func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer()
}
