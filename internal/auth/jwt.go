package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audiência única deste serviço: a sessão de análise de liberação.
const AudienciaAnalista = "analista"

// Claims são as informações do token de sessão do analista. O subject é o
// id da sessão de análise no armazenamento de sessões.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTManager encapsula geração e validação dos tokens de sessão.
type JWTManager struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, sessionTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), sessionTTL: sessionTTL}
}

// SessionTTL informa a validade configurada dos tokens.
func (m *JWTManager) SessionTTL() time.Duration {
	return m.sessionTTL
}

// GenerateSessionToken cria um JWT HS256 apontando para a sessão informada.
func (m *JWTManager) GenerateSessionToken(sessaoID string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessaoID,
			Audience:  jwt.ClaimStrings{AudienciaAnalista},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAndValidate verifica assinatura, expiração e audiência.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AudienciaAnalista),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("token inválido")
	}

	return claims, nil
}
