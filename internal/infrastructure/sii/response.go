package sii

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	domsii "github.com/facturia/sii-gateway/internal/domain/sii"
)

// Estados de envío devueltos por el servicio.
const (
	envStatusCorrect          = "Correcto"
	envStatusPartiallyCorrect = "ParcialmenteCorrecto"
	envStatusIncorrect        = "Incorrecto"
)

// LineResult resultado individual de un registro dentro de la respuesta.
type LineResult struct {
	InvoiceNumber string
	Accepted      bool
	ErrorCode     string
	ErrorMessage  string
}

// SubmitResponse respuesta del servicio a un envío que llegó a procesarse.
type SubmitResponse struct {
	Raw    []byte
	Status string // Correcto, ParcialmenteCorrecto o Incorrecto
	CSV    string // código seguro de verificación (opaco)
	Lines  []LineResult
}

// Accepted indica si el envío completo fue aceptado.
func (r *SubmitResponse) Accepted() bool { return r.Status == envStatusCorrect }

// ── Parse de la respuesta de suministro ───────────────────────────────────────

// Estructuras de deserialización. encoding/xml casa por nombre local, con lo
// que el prefijo de namespace de la respuesta es indiferente.
type responseEnvelope struct {
	Body responseBody `xml:"Body"`
}

type responseBody struct {
	Respuesta *respuestaLR `xml:",any"`
	Fault     *soapFault   `xml:"Fault"`
}

type respuestaLR struct {
	CSV         string           `xml:"CSV"`
	EstadoEnvio string           `xml:"EstadoEnvio"`
	Lineas      []respuestaLinea `xml:"RespuestaLinea"`
}

type respuestaLinea struct {
	IDFactura struct {
		NumSerie string `xml:"NumSerieFacturaEmisor"`
	} `xml:"IDFactura"`
	EstadoRegistro   string `xml:"EstadoRegistro"`
	CodigoError      string `xml:"CodigoErrorRegistro"`
	DescripcionError string `xml:"DescripcionErrorRegistro"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
	Detail      struct {
		Inner string `xml:",innerxml"`
	} `xml:"detail"`
}

// parseSubmitResponse interpreta el cuerpo de una respuesta 200.
func parseSubmitResponse(raw []byte) (*SubmitResponse, error) {
	var env responseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("sii: respuesta no parseable: %w", err)
	}
	if env.Body.Respuesta == nil || env.Body.Respuesta.EstadoEnvio == "" {
		return nil, fmt.Errorf("sii: respuesta sin EstadoEnvio")
	}

	out := &SubmitResponse{
		Raw:    raw,
		Status: env.Body.Respuesta.EstadoEnvio,
		CSV:    env.Body.Respuesta.CSV,
	}
	for _, l := range env.Body.Respuesta.Lineas {
		out.Lines = append(out.Lines, LineResult{
			InvoiceNumber: l.IDFactura.NumSerie,
			Accepted:      l.EstadoRegistro == envStatusCorrect,
			ErrorCode:     l.CodigoError,
			ErrorMessage:  l.DescripcionError,
		})
	}
	return out, nil
}

// ── Extracción de faults ──────────────────────────────────────────────────────

// Heurísticas regex de último recurso, solo cuando el parse estructurado no
// reconoce el cuerpo. Mantienen la clasificación de los casos ya cubiertos.
var (
	faultCodeRe   = regexp.MustCompile(`<(?:\w+:)?faultcode[^>]*>([^<]+)</`)
	faultStringRe = regexp.MustCompile(`<(?:\w+:)?faultstring[^>]*>([^<]+)</`)
)

// extractFault intenta obtener el bloque de fault de un cuerpo de error.
// Primero parse estructurado (encoding/xml + etree para el detalle anidado);
// si el cuerpo no es XML bien formado, cae a las heurísticas regex.
func extractFault(raw []byte) (domsii.Fault, bool) {
	var env responseEnvelope
	if err := xml.Unmarshal(raw, &env); err == nil && env.Body.Fault != nil {
		f := domsii.Fault{
			FaultCode:   strings.TrimSpace(env.Body.Fault.FaultCode),
			FaultString: strings.TrimSpace(env.Body.Fault.FaultString),
		}
		if env.Body.Fault.Detail.Inner != "" {
			f.AppCode, f.AppMessage = extractAppError(env.Body.Fault.Detail.Inner)
		}
		return f, true
	}

	// Fallback: el servidor a veces devuelve fragmentos no bien formados.
	code := faultCodeRe.FindSubmatch(raw)
	str := faultStringRe.FindSubmatch(raw)
	if code == nil && str == nil {
		return domsii.Fault{}, false
	}
	var f domsii.Fault
	if code != nil {
		f.FaultCode = strings.TrimSpace(string(code[1]))
	}
	if str != nil {
		f.FaultString = strings.TrimSpace(string(str[1]))
	}
	return f, true
}

// extractAppError busca el código y descripción de aplicación dentro del
// detalle del fault (elementos Codigo/Descripcion, cualquier namespace).
func extractAppError(detailXML string) (code, message string) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<detail>" + detailXML + "</detail>"); err != nil {
		return "", ""
	}
	for _, el := range doc.Root().FindElements("//*") {
		switch el.Tag {
		case "Codigo", "CodigoError":
			if code == "" {
				code = strings.TrimSpace(el.Text())
			}
		case "Descripcion", "DescripcionError":
			if message == "" {
				message = strings.TrimSpace(el.Text())
			}
		}
	}
	return code, message
}
