package desktop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUI struct {
	tasks []func()
}

func (f *fakeUI) Dispatch(fn func()) { f.tasks = append(f.tasks, fn) }

func TestPoster(t *testing.T) {
	ui := &fakeUI{}
	p := NewPoster(ui)

	ran := 0
	assert.True(t, p.Post(func() { ran++ }))
	require.Len(t, ui.tasks, 1)
	ui.tasks[0]()
	assert.Equal(t, 1, ran)

	p.Close()
	assert.False(t, p.Post(func() { ran++ }))
	assert.Len(t, ui.tasks, 1)
}

func TestOpenExternal(t *testing.T) {
	var opened []string
	orig := openBrowser
	openBrowser = func(u string) error {
		opened = append(opened, u)
		return nil
	}
	t.Cleanup(func() { openBrowser = orig })

	require.NoError(t, OpenExternal("https://example.com/privacy"))
	assert.Error(t, OpenExternal("file:///etc/passwd"))
	assert.Error(t, OpenExternal("javascript:alert(1)"))
	assert.Equal(t, []string{"https://example.com/privacy"}, opened)
}
