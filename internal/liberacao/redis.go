package liberacao

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const prefixoSessao = "liberacao:sessao:"

// RedisSessaoStore guarda sessões de análise no Redis, permitindo reinícios
// da API sem derrubar analistas autenticados.
type RedisSessaoStore struct {
	client *redis.Client
}

// NewRedisSessaoStore cria o armazenamento sobre um cliente já conectado.
func NewRedisSessaoStore(client *redis.Client) *RedisSessaoStore {
	return &RedisSessaoStore{client: client}
}

func (r *RedisSessaoStore) Salvar(ctx context.Context, s Sessao, ttl time.Duration) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, prefixoSessao+s.ID, payload, ttl).Err()
}

func (r *RedisSessaoStore) Buscar(ctx context.Context, id string) (Sessao, error) {
	payload, err := r.client.Get(ctx, prefixoSessao+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Sessao{}, ErrSessaoNaoEncontrada
	}
	if err != nil {
		return Sessao{}, err
	}

	var s Sessao
	if err := json.Unmarshal(payload, &s); err != nil {
		return Sessao{}, err
	}
	return s, nil
}

func (r *RedisSessaoStore) Remover(ctx context.Context, id string) error {
	return r.client.Del(ctx, prefixoSessao+id).Err()
}
