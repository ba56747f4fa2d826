package safety

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSafe(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		style  string
		script string
		want   bool
	}{
		{"plain markup", "<div>{{.classroom.name}}</div>", ".a{}", "console.log(1)", true},
		{"empty content", "", "", "", true},
		{"code open tag", "<div><?php echo 1; ?></div>", "", "", false},
		{"code open tag uppercase", "<?PHP echo 1;", "", "", false},
		{"short echo tag", "<p><?= $x ?></p>", "", "", false},
		{"code tag hidden in script", "<p>x</p>", "", "var s = '<?php';", false},
		{"code tag hidden in style", "<p>x</p>", "/* <?= */", "", false},
		{"simple assignment block", "@php $title = 'Hi'; @endphp<h1>{{$title}}</h1>", "", "", true},
		{"several assignments", "@php $a = 1; $b = .classroom.name; @endphp", "", "", true},
		{"two blocks", "@php $a = 1; @endphp<p></p>@php $b = 2; @endphp", "", "", true},
		{"empty block", "@php   @endphp", "", "", false},
		{"call-like token", "@php $a = strtoupper($b); @endphp", "", "", false},
		{"call-like with space", "@php $a = foo ($b); @endphp", "", "", false},
		{"denied word", "@php $a = new Thing; @endphp", "", "", false},
		{"denied word mixed case", "@php $a = EVAL; @endphp", "", "", false},
		{"expression statement", "@php $a == 1; @endphp", "", "", false},
		{"bare statement", "@php echo $a; @endphp", "", "", false},
		{"missing variable sigil", "@php a = 1; @endphp", "", "", false},
		{"nested close tag", "@php $a = 1 ?> @endphp", "", "", false},
		{"nested template action", "@php $a = {{.x}}; @endphp", "", "", false},
		{"unclosed block", "@php $a = 1;", "", "", false},
		{"stray close", "<p>x</p>@endphp", "", "", false},
		{"unbalanced blocks", "@php $a = 1; @endphp @php $b = 2;", "", "", false},
		{"define action", `{{define "x"}}y{{end}}`, "", "", false},
		{"template action", `<p>{{template "secret" .}}</p>`, "", "", false},
		{"block action trimmed", `{{- block "b" .}}{{end}}`, "", "", false},
		{"call builtin", `{{call .user.fn}}`, "", "", false},
		{"call in pipeline", `{{.x | call}}`, "", "", false},
		{"call as field is fine", `{{.page.call}}`, "", "", true},
		{"recall word is fine", `{{.page.recall}}`, "", "", true},
		{"template comment", `{{/* template "x" */}}`, "", "", true},
		{"words outside limited code", "<p>new class function exec</p>", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSafe(tc.markup, tc.style, tc.script))
		})
	}
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check("<p>ok</p>", "", ""))

	err := Check("<?php system('id'); ?>", "", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafeContent))
	assert.Equal(t, "unsafe construct not allowed", err.Error())
}

func TestParseAssignments(t *testing.T) {
	got, ok := ParseAssignments(" $title = 'Welcome' ;\n $count= 3; ")
	require.True(t, ok)
	assert.Equal(t, []Assignment{
		{Name: "title", Expr: "'Welcome'"},
		{Name: "count", Expr: "3"},
	}, got)

	_, ok = ParseAssignments(";;")
	assert.False(t, ok, "only separators")

	_, ok = ParseAssignments("$x = ")
	assert.False(t, ok, "empty expression")
}

func TestDeniedWordsAreWholeWord(t *testing.T) {
	_, ok := ParseAssignments("$renewal = 1")
	assert.True(t, ok, "variable names containing denied words are fine")

	_, ok = ParseAssignments("$a = $newsletter")
	assert.True(t, ok)

	for _, w := range deniedWords {
		_, ok := ParseAssignments("$a = " + w)
		assert.False(t, ok, "denied word %q", w)
	}
}
