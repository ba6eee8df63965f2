package support

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestWidget(t *testing.T) {
	w := Widget()

	assert.Equal(t, w.Greeting, "Olá! Bem-vindo à Natal Store. Como posso ajudar você hoje?")
	assert.Assert(t, is.Len(w.FAQ, 3))
	assert.Equal(t, w.Contact.URL, "https://wa.me/5554999999999")

	// callers get their own copy
	w.FAQ[0].Answer = "changed"
	assert.Assert(t, Widget().FAQ[0].Answer != "changed")
}

func TestAnswer(t *testing.T) {
	e, ok := Answer("  formas de pagamento? ")
	assert.Assert(t, ok)
	assert.Assert(t, is.Contains(e.Answer, "Pix (5% off)"))

	_, ok = Answer("Vocês abrem no Natal?")
	assert.Assert(t, !ok)
}
