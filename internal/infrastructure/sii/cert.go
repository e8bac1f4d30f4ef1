package sii

import (
	"crypto/tls"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// ClientCertificate material de autenticación del titular, en memoria.
// CertPEM/KeyPEM para un par PEM; P12 + Password para un PKCS#12.
type ClientCertificate struct {
	CertPEM  []byte
	KeyPEM   []byte
	P12      []byte
	Password string
}

// Empty indica si no se aportó material (solo válido fuera de producción).
func (c ClientCertificate) Empty() bool {
	return len(c.CertPEM) == 0 && len(c.P12) == 0
}

// Load materializa el tls.Certificate desde los bytes en memoria.
func (c ClientCertificate) Load() (tls.Certificate, error) {
	if len(c.P12) > 0 {
		priv, cert, err := pkcs12.Decode(c.P12, c.Password)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("sii: decodificar p12: %w", err)
		}
		// pkcs12.Decode devuelve solo el certificado hoja; para el SII basta.
		return tls.Certificate{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  priv,
			Leaf:        cert,
		}, nil
	}
	keyPEM := c.KeyPEM
	if len(keyPEM) == 0 {
		// Un solo buffer puede contener cert+key en PEM.
		keyPEM = c.CertPEM
	}
	cert, err := tls.X509KeyPair(c.CertPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("sii: cargar par PEM: %w", err)
	}
	return cert, nil
}

// ReadClientCertificate lee el material desde disco a memoria según la
// extensión del fichero (.p12/.pfx o par PEM).
func ReadClientCertificate(certPath, keyPath, password string) (ClientCertificate, error) {
	if certPath == "" {
		return ClientCertificate{}, nil
	}
	data, err := os.ReadFile(certPath)
	if err != nil {
		return ClientCertificate{}, fmt.Errorf("sii: leer certificado: %w", err)
	}
	if isP12Path(certPath) {
		return ClientCertificate{P12: data, Password: password}, nil
	}
	cc := ClientCertificate{CertPEM: data}
	if keyPath != "" {
		key, err := os.ReadFile(keyPath)
		if err != nil {
			return ClientCertificate{}, fmt.Errorf("sii: leer llave privada: %w", err)
		}
		cc.KeyPEM = key
	}
	return cc, nil
}

func isP12Path(path string) bool {
	n := len(path)
	return (n > 4 && (path[n-4:] == ".p12" || path[n-4:] == ".pfx")) ||
		(n > 4 && (path[n-4:] == ".P12" || path[n-4:] == ".PFX"))
}

// newTLSConfig arma la configuración TLS del cliente. Versiones 1.2–1.3
// fijadas. En producción la verificación de cadena es obligatoria; en
// sandbox se relaja porque el entorno de pruebas de la AEAT presenta una
// cadena propia. Esta asimetría es una decisión operativa deliberada.
func newTLSConfig(cert ClientCertificate, env string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS13,
		InsecureSkipVerify: env != EnvProduction,
	}
	if cert.Empty() {
		if env == EnvProduction {
			return nil, fmt.Errorf("sii: producción requiere certificado de cliente")
		}
		return cfg, nil
	}
	tlsCert, err := cert.Load()
	if err != nil {
		return nil, err
	}
	cfg.Certificates = []tls.Certificate{tlsCert}
	return cfg, nil
}
