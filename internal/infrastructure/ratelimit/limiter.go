// Package ratelimit implementa un límite de peticiones por endpoint con
// token bucket. Es un componente con dueño explícito y reseteable: nada de
// contadores globales de proceso, para que los tests puedan correr en
// paralelo sin contaminarse entre sí.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter agrupa un rate.Limiter por clave de endpoint.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New crea el limitador: perSecond tokens por segundo con ráfaga burst.
// perSecond <= 0 desactiva el límite (Wait retorna inmediatamente).
func New(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Wait bloquea hasta que haya un token disponible para el endpoint o el
// contexto se cancele.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	if l == nil || l.limit <= 0 {
		return nil
	}
	return l.forEndpoint(endpoint).Wait(ctx)
}

// Allow indica sin bloquear si hay token disponible para el endpoint.
func (l *Limiter) Allow(endpoint string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	return l.forEndpoint(endpoint).Allow()
}

// Reset descarta todos los contadores. Pensado para tests.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*rate.Limiter)
}

func (l *Limiter) forEndpoint(endpoint string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[endpoint]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[endpoint] = lim
	}
	return lim
}
