package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sievelab/sieved/domain"
)

func TestGetPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewPrefixCache(db, time.Hour)

	p := domain.Prefix{Bound: 10, Values: []uint64{2, 3, 5, 7}}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	key := fmt.Sprintf(KeyPrefixSnapshot, "primes")
	mock.ExpectGet(key).SetVal(string(data))

	got, err := c.GetPrefix(context.Background(), "primes")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPrefix_MissMapsToCacheMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewPrefixCache(db, time.Hour)

	key := fmt.Sprintf(KeyPrefixSnapshot, "primes")
	mock.ExpectGet(key).RedisNil()

	_, err := c.GetPrefix(context.Background(), "primes")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestSetPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewPrefixCache(db, time.Hour)

	p := domain.Prefix{Bound: 10, Values: []uint64{2, 3, 5, 7}}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	key := fmt.Sprintf(KeyPrefixSnapshot, "primes")
	mock.ExpectSet(key, data, time.Hour).SetVal("OK")

	require.NoError(t, c.SetPrefix(context.Background(), "primes", p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewPrefixCache(db, time.Hour)

	key := fmt.Sprintf(KeyPrefixSnapshot, "primes")
	mock.ExpectDel(key).SetVal(1)

	require.NoError(t, c.DeletePrefix(context.Background(), "primes"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
