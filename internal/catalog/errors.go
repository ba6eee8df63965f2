package catalog

import "github.com/fjod/natal_store/internal/apperr"

var (
	ErrProductNotFound   = apperr.NotFound("product_not_found", "Produto não encontrado.")
	ErrInsufficientStock = apperr.Conflict("insufficient_stock", "Estoque insuficiente.")
)

const (
	msgNotEnoughImages = "Por favor, adicione pelo menos 3 imagens do produto para garantir uma boa apresentação na loja."
	msgMissingCategory = "Selecione ou crie uma categoria."
)
