package gosensorcore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	prev := Logf
	t.Cleanup(func() { Logf = prev })

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("skipping %s", "notes.txt")
	assert.Equal(t, []string{"skipping notes.txt"}, got)

	SetLogger(nil)
	Logf("muted")
	assert.Len(t, got, 1)
}
