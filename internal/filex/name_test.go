package filex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "passport.pdf", want: "passport.pdf"},
		{name: "path stripped", in: "documents/2024/01/02/passport.pdf", want: "passport.pdf"},
		{name: "windows path stripped", in: `C:\Users\me\cv.docx`, want: "cv.docx"},
		{name: "accents folded", in: "résumé.pdf", want: "resume.pdf"},
		{name: "control chars removed", in: "id\x00card\x1f.png", want: "idcard.png"},
		{name: "leading dots removed", in: "...hidden.txt", want: "hidden.txt"},
		{name: "unsafe runes replaced", in: "my:cv|final?.pdf", want: "my-cv-final.pdf"},
		{name: "empty becomes file", in: "", want: "file"},
		{name: "dot only becomes file", in: ".", want: "file"},
		{name: "extension lowercased", in: "SCAN.PDF", want: "SCAN.pdf"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanFileName(tc.in))
		})
	}
}

func TestCleanFileName_LongBaseCapped(t *testing.T) {
	in := strings.Repeat("a", 300) + ".pdf"
	got := CleanFileName(in)
	assert.Equal(t, strings.Repeat("a", 100)+".pdf", got)
}
