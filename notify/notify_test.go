package notify

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLSkipsEmptyFieldsAndEscapes(t *testing.T) {
	out, err := HTML(Notice{
		Subject: "رسالة جديدة",
		Fields: []Field{
			{Label: "Name", Value: "<b>Ali</b>"},
			{Label: "Subject", Value: ""},
		},
		Link: "https://example.org/admin/contact-messages/7/",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "رسالة جديدة")
	assert.Contains(t, out, "&lt;b&gt;Ali&lt;/b&gt;")
	assert.NotContains(t, out, "Subject</th>")
	assert.Contains(t, out, `href="https://example.org/admin/contact-messages/7/"`)
}

func TestNoopSender(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	assert.NoError(t, NewNoopSender(log).Send(context.Background(), Notice{Subject: "x"}))
}
