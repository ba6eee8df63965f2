package auth

import "github.com/fjod/natal_store/internal/apperr"

var (
	ErrInvalidCredentials = apperr.Unauthorized("invalid_credentials", "Credenciais inválidas.")
	ErrAccountLocked      = apperr.Forbidden("account_locked", "Conta bloqueada. Entre em contato com o suporte.")
	ErrAdminOnly          = apperr.Forbidden("admin_only", "Acesso restrito a administradores.")
	ErrEmailTaken         = apperr.Conflict("email_taken", "Este e-mail já está cadastrado.")
	ErrReservedEmail      = apperr.Conflict("email_reserved", "Este e-mail é reservado para uso administrativo.")
	ErrInvalidCodes       = apperr.Invalid("invalid_verification_codes", "Códigos de verificação inválidos.")
	ErrUserNotFound       = apperr.NotFound("user_not_found", "Usuário não encontrado.")
	ErrInvalidToken       = apperr.Unauthorized("invalid_token", "Sessão inválida. Faça login novamente.")
	ErrExpiredToken       = apperr.Unauthorized("session_expired", "Sua sessão expirou. Faça login novamente.")
	ErrInvalidResetToken  = apperr.Invalid("invalid_reset_token", "Link de redefinição inválido ou expirado.")
	ErrCannotLockAdmin    = apperr.Forbidden("cannot_lock_admin", "Não é possível bloquear um administrador.")
	ErrInvalidStatus      = apperr.Invalid("invalid_status", "Status inválido.")
)

const (
	msgFullName        = "Digite seu nome completo"
	msgEmail           = "Digite um e-mail válido (ex: nome@dominio.com)."
	msgPhone           = "Digite um telefone válido com DDD (10 ou 11 dígitos)."
	msgWeakPassword    = "A senha deve ter no mínimo 12 caracteres, incluindo maiúsculas, minúsculas, números e símbolos."
	msgPasswordsDiffer = "As senhas não coincidem."
	msgTerms           = "Você deve aceitar os termos."
)
