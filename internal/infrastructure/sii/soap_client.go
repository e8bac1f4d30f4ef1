package sii

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/facturia/sii-gateway/internal/domain"
	domsii "github.com/facturia/sii-gateway/internal/domain/sii"
	"github.com/facturia/sii-gateway/internal/infrastructure/ratelimit"
	"github.com/facturia/sii-gateway/pkg/logger"
)

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// Transport define el puerto de salida hacia el servicio SII.
// La implementación concreta usa SOAP sobre TLS mutuo; para tests se puede
// inyectar un mock.
type Transport interface {
	// Submit envía el payload del libro indicado y devuelve la respuesta
	// parseada, o un error clasificado tras agotar los reintentos.
	Submit(ctx context.Context, bookCode, payload string) (*SubmitResponse, error)
}

// ── Configuración ─────────────────────────────────────────────────────────────

// ClientConfig parámetros del cliente de transporte.
type ClientConfig struct {
	Environment string // EnvSandbox o EnvProduction; nunca se mezclan por llamada
	BaseURL     string // opcional, sustituye la URL del entorno (tests)

	Certificate ClientCertificate

	MaxAttempts  int           // intentos totales, incluido el primero
	InitialDelay time.Duration // backoff inicial
	MaxDelay     time.Duration // tope por espera
	Multiplier   float64       // factor exponencial

	Timeout time.Duration // timeout por llamada, no por lote
}

func (c *ClientConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 4
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 8 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// ── Implementación ────────────────────────────────────────────────────────────

// Client implementa Transport contra el servicio SOAP del SII.
// No guarda estado mutable entre llamadas: varias particiones pueden usarlo
// concurrentemente sin bloqueo. Los reintentos de una misma petición son
// estrictamente secuenciales.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	cfg        ClientConfig
	limiter    *ratelimit.Limiter // puede ser nil: sin límite
	log        *logger.Logger

	// sleep se puede sustituir en tests para no esperar de verdad.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient construye el cliente. El certificado viaja en memoria; en
// producción es obligatorio y la verificación de cadena no se relaja.
func NewClient(cfg ClientConfig, limiter *ratelimit.Limiter, log *logger.Logger) (*Client, error) {
	cfg.applyDefaults()

	endpoints, err := NewEndpoints(cfg.Environment, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	tlsCfg, err := newTLSConfig(cfg.Certificate, cfg.Environment)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
		endpoints: endpoints,
		cfg:       cfg,
		limiter:   limiter,
		log:       log,
		sleep:     sleepCtx,
	}, nil
}

// Submit envía el payload con reintentos y backoff exponencial:
//
//	delay = min(initial × multiplier^(intento−1), maxDelay)
//
// Bucle acotado explícito, nunca recursión: el número de intentos no puede
// crecer la pila.
func (c *Client) Submit(ctx context.Context, bookCode, payload string) (*SubmitResponse, error) {
	url, err := c.endpoints.ForBook(bookCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return nil, fmt.Errorf("sii: cancelado esperando límite de peticiones: %w", err)
		}

		resp, retryable, err := c.attempt(ctx, url, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable {
			c.log.Warn().Str("book", bookCode).Int("attempt", attempt).Err(err).
				Msg("fallo no reintentable, abortando")
			return nil, err
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := c.backoffDelay(attempt)
		c.log.Warn().Str("book", bookCode).Int("attempt", attempt).
			Dur("delay", delay).Err(err).Msg("fallo transitorio, reintentando")
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("sii: cancelado durante backoff: %w", err)
		}
	}

	// Reintentos agotados: propagar el error mejor clasificado disponible.
	var subErr *domain.SubmissionError
	if errors.As(lastErr, &subErr) {
		return nil, lastErr
	}
	return nil, domain.NewSubmissionError("", domain.ErrServiceUnavailable,
		fmt.Sprintf("reintentos agotados (%d): %v", c.cfg.MaxAttempts, lastErr))
}

// attempt ejecuta una única llamada. Devuelve la respuesta, o el error y si
// la condición admite reintento.
func (c *Client) attempt(ctx context.Context, url, payload string) (*SubmitResponse, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url,
		bytes.NewReader([]byte(payload)))
	if err != nil {
		return nil, false, fmt.Errorf("sii: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Cancelación del llamador no se reintenta; el timeout por llamada sí.
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("sii: llamada cancelada: %w", ctx.Err())
		}
		return nil, isNetworkRetryable(err), fmt.Errorf("sii: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // máx 1 MB
	if err != nil {
		return nil, true, fmt.Errorf("sii: leer respuesta: %w", err)
	}

	if resp.StatusCode == http.StatusOK {
		parsed, err := parseSubmitResponse(rawBody)
		if err != nil {
			// 200 con fault embebido o cuerpo irreconocible.
			if fault, ok := extractFault(rawBody); ok {
				return nil, domsii.IsRetryableFault(fault), domsii.MapFault(fault)
			}
			return nil, false, err
		}
		return parsed, false, nil
	}

	// Respuesta de error: primero el fault estructurado, que clasifica mejor
	// que el código HTTP.
	if fault, ok := extractFault(rawBody); ok {
		return nil, domsii.IsRetryableFault(fault), domsii.MapFault(fault)
	}

	retryable := resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500
	category := domain.ErrServiceUnavailable
	if !retryable {
		category = domain.ErrBadRequest
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			category = domain.ErrUnauthorized
		}
	}
	return nil, retryable, domain.NewSubmissionError("", category,
		fmt.Sprintf("HTTP %d sin fault parseable", resp.StatusCode))
}

// backoffDelay espera antes del intento attempt+1.
func (c *Client) backoffDelay(attempt int) time.Duration {
	d := time.Duration(float64(c.cfg.InitialDelay) * math.Pow(c.cfg.Multiplier, float64(attempt-1)))
	if d > c.cfg.MaxDelay {
		return c.cfg.MaxDelay
	}
	return d
}

// isNetworkRetryable clasifica errores de red previos a una respuesta HTTP.
// Reset, timeout, conexión rechazada y fallo de DNS son transitorios; un
// fallo de handshake por certificado no lo es.
func isNetworkRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection reset", "broken pipe", "EOF"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	// Errores de certificado/TLS: reintentar no los arregla.
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
