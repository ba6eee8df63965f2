package catalog

import "github.com/fjod/natal_store/internal/domain"

var testimonials = []domain.Review{
	{ID: 1, Name: "Maria Silva", Comment: "Amei a árvore! Chegou super rápido e é muito cheia, exatamente como na foto.", Rating: 5, Date: "10/11/2024"},
	{ID: 2, Name: "João Souza", Comment: "Os preços são ótimos. O pisca-pisca tem uma cor bem aconchegante.", Rating: 4, Date: "12/11/2024"},
	{ID: 3, Name: "Ana Pereira", Comment: "Atendimento excelente pelo WhatsApp. Resolveram minha dúvida na hora.", Rating: 5, Date: "15/11/2024"},
}

// Testimonials returns the customer reviews shown on the home page.
func Testimonials() []domain.Review {
	out := make([]domain.Review, len(testimonials))
	copy(out, testimonials)
	return out
}
