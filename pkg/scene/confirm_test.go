package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size int
		want string
	}{
		{0, "0 bytes"},
		{1024, "1024 bytes"},
		{1536, "1.50 kiB"},
		{3 << 20, "3.00 MiB"},
		{5 << 30, "5.00 GiB"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HumanSize(tc.size))
	}
}

func TestThresholdConfirm(t *testing.T) {
	var asked []string
	prompt := ConfirmFunc(func(size int, human string) bool {
		asked = append(asked, human)
		return size < 4096
	})

	c := ThresholdConfirm{Limit: 1024, Prompt: prompt}
	assert.True(t, c.ConfirmResync(100, HumanSize(100)))
	assert.Empty(t, asked, "small transfers do not prompt")

	assert.True(t, c.ConfirmResync(2048, HumanSize(2048)))
	assert.False(t, c.ConfirmResync(8192, HumanSize(8192)))
	assert.Equal(t, []string{"2.00 kiB", "8.00 kiB"}, asked)

	refuse := ThresholdConfirm{Limit: 10}
	assert.False(t, refuse.ConfirmResync(11, ""))

	unlimited := ThresholdConfirm{}
	assert.True(t, unlimited.ConfirmResync(1<<30, ""))

	assert.True(t, AutoConfirm{}.ConfirmResync(1<<30, ""))
}
