package auth

import (
	"github.com/alexedwards/argon2id"
)

// Parâmetros fixos para senhas de pacientes e médicos. O hash codificado
// carrega os próprios parâmetros, então dá para endurecer aqui sem
// invalidar hashes antigos.
var hashParams = &argon2id.Params{
	Memory:      64 * 1024, // KiB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera um hash Argon2id da senha em claro.
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, hashParams)
}

// Verify compara a senha com um hash Argon2id em tempo constante.
func Verify(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}
