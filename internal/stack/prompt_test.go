package stack

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderPrompter_Confirm(t *testing.T) {
	var out bytes.Buffer
	p := NewReaderPrompter(strings.NewReader("y\nn\n"), &out)

	ok, err := p.Confirm("Remove everything?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Confirm("Again?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Confirm("At EOF?")
	require.NoError(t, err)
	assert.False(t, ok, "end of input is a no")

	assert.Contains(t, out.String(), "Remove everything? [y/N] ")
}

func TestReaderPrompter_WaitForEnter(t *testing.T) {
	var out bytes.Buffer
	p := NewReaderPrompter(strings.NewReader("\nrest"), &out)

	require.NoError(t, p.WaitForEnter("Press Enter... "))
	require.NoError(t, p.WaitForEnter("Again... "))
	require.NoError(t, p.WaitForEnter("EOF... "), "end of input does not fail")
	assert.Equal(t, "Press Enter... Again... EOF... ", out.String())
}
