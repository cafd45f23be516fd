package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML("text/html"))
	assert.True(t, IsHTML("text/html; charset=utf-8"))
	assert.True(t, IsHTML("application/xhtml+xml"))
	assert.False(t, IsHTML("image/png"))
	assert.False(t, IsHTML(""))
}

func TestPageText(t *testing.T) {
	page := []byte(`<html><head><title>Bank</title><style>body{color:red}</style>
<script>steal()</script></head>
<body><h1>Verify   your account</h1><p>Tom &amp; Jerry</p></body></html>`)

	text := PageText(page, 0)
	assert.Contains(t, text, "Verify your account")
	assert.Contains(t, text, "Tom & Jerry")
	assert.NotContains(t, text, "steal()")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<")

	assert.Equal(t, "Verify", PageText([]byte("<p>Verify your account</p>"), 6))
}
