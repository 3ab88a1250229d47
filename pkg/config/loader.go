package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// registry keeps the first successfully parsed value of every config type.
type registry struct {
	mu   sync.Mutex
	byTy map[reflect.Type]*slot
}

// slot serializes parsing of one type. Failed parses are not remembered, so
// a later Load retries once the environment is fixed.
type slot struct {
	mu     sync.Mutex
	loaded bool
	value  any
}

var (
	loaded = &registry{byTy: make(map[reflect.Type]*slot)}

	dotenvOnce sync.Once
)

func (r *registry) slotFor(t reflect.Type) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byTy[t]
	if !ok {
		s = &slot{}
		r.byTy[t] = s
	}
	return s
}

func (r *registry) drop(t reflect.Type) {
	r.mu.Lock()
	delete(r.byTy, t)
	r.mu.Unlock()
}

func (r *registry) clear() {
	r.mu.Lock()
	r.byTy = make(map[reflect.Type]*slot)
	r.mu.Unlock()
}

// Load fills v from the process environment. The first successful call for a
// type parses it; later calls copy the remembered value, even if the
// environment has changed since. Use ForceReloadConfig to pick up changes.
//
//	var pg pgstore.Config
//	if err := config.Load(&pg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	readDotenv()

	s := loaded.slotFor(reflect.TypeFor[T]())
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		*v = s.value.(T)
		return nil
	}

	var fresh T
	if err := env.Parse(&fresh); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	s.value, s.loaded = fresh, true
	*v = fresh
	return nil
}

// MustLoad is like Load but panics on failure. Meant for process startup.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration %T: %v", *new(T), err))
	}
}

// LoadWithPrefix parses v without touching the registry, reading every
// variable under prefix: with "ORDERS_" a field tagged PG_CONN_URL reads
// ORDERS_PG_CONN_URL. It lets one process hold two snapshot backends of the
// same kind.
func LoadWithPrefix[T any](v *T, prefix string) error {
	if v == nil {
		return ErrNilPointer
	}
	readDotenv()
	if err := env.ParseWithOptions(v, env.Options{Prefix: prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadEnv exports the variables of the given dotenv files, or of ".env" when
// no path is given. Variables already set are kept, so the earliest source wins.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv is like LoadEnv but panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(err)
	}
}

// ForceReloadConfig forgets the remembered value of T and parses it again.
func ForceReloadConfig[T any](v *T) error {
	loaded.drop(reflect.TypeFor[T]())
	return Load(v)
}

// ResetCache forgets every remembered config. Tests use it between cases.
func ResetCache() {
	loaded.clear()
}

// readDotenv exports ./.env once per process if it exists.
func readDotenv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}
