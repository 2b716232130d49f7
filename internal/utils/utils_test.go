package utils

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDomainFromEmail(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomainFromEmail("User@Example.COM"))
	assert.Equal(t, "example.com", ExtractDomainFromEmail("Jane <jane@example.com>"))
	assert.Equal(t, "c.com", ExtractDomainFromEmail("a@b@c.com"))
	assert.Equal(t, "", ExtractDomainFromEmail("nope"))
	assert.Equal(t, "", ExtractDomainFromEmail(""))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "***", MaskEmail("@example.com"))
	assert.Equal(t, "***", MaskEmail("nope"))
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("wl", 16)
	assert.True(t, strings.HasPrefix(id, "wl_"))
	assert.Len(t, id, 19)
	assert.NotEqual(t, id, GenerateNanoIDWithPrefix("wl", 16))
	assert.Len(t, GenerateNanoIDWithPrefix("", 8), 8)
}

func TestGenerateMessageID(t *testing.T) {
	id := GenerateMessageID("customeros.ai", "a@b.com")
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@customeros.ai>"))
}

func TestClampPage(t *testing.T) {
	limit, offset := ClampPage(0, -5, 50, 200)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, offset = ClampPage(1000, 10, 50, 200)
	assert.Equal(t, 200, limit)
	assert.Equal(t, 10, offset)
}

func TestCustomContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetAppSourceFromContext(ctx))

	ctx2 := WithCustomContext(ctx, &CustomContext{AppSource: AppSourceCron, ClientIP: "10.0.0.1"})
	assert.Equal(t, AppSourceCron, GetAppSourceFromContext(ctx2))
	assert.Equal(t, "10.0.0.1", GetClientIPFromContext(ctx2))
	assert.Equal(t, "", GetClientIPFromContext(ctx))
}

func TestUniqueEmails(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, UniqueEmails([]string{"a@x.io", "b@x.io", "a@x.io"}))
	assert.Empty(t, UniqueEmails(nil))
}
