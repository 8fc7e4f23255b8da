package auth

import (
	"github.com/alexedwards/argon2id"
)

// Parâmetros Argon2id para o segredo compartilhado da análise. Ficam
// embutidos no próprio hash, então podem evoluir sem migração.
var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera o hash Argon2id da senha de análise (ver cmd/hashpass).
func Hash(senha string) (string, error) {
	return argon2id.CreateHash(senha, params)
}

// Verify compara a senha informada com o hash configurado.
func Verify(senha, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(senha, hash)
}
