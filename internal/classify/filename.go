package classify

import (
	"path/filepath"
	"strings"

	"github.com/istmo-digital/docintel/constants"
)

// filenameBuckets maps filename tokens to a type and a capped confidence.
// Identity keywords score slightly higher because their filenames are rarely
// ambiguous ("cedula_juan.pdf").
var filenameBuckets = []struct {
	tokens     []string
	typeID     constants.TypeID
	confidence float64
}{
	{[]string{"dni", "cedula", "identidad"}, constants.TypeDNI, 0.7},
	{[]string{"pasaporte", "passport"}, constants.TypePasaporte, 0.7},
	{[]string{"extracto", "estado_cuenta", "estadocuenta"}, constants.TypeExtracto, 0.6},
	{[]string{"nomina", "planilla"}, constants.TypeNomina, 0.6},
	{[]string{"factura", "invoice"}, constants.TypeFactura, 0.6},
	{[]string{"recibo"}, constants.TypeRecibo, 0.6},
	{[]string{"kyc", "formulario"}, constants.TypeKYC, 0.6},
	{[]string{"contrato", "contract", "prestamo"}, constants.TypeContrato, 0.6},
}

// ByFilename classifies from the filename alone, for use before any OCR text
// exists. Confidence never exceeds 0.7 and the result always requires
// re-verification against extracted text.
func (c *Classifier) ByFilename(filename string) Result {
	base := strings.ToLower(filepath.Base(filename))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, bucket := range filenameBuckets {
		for _, token := range bucket.tokens {
			if strings.Contains(base, token) {
				c.logger.Debug("filename classification",
					"filename", filename, "token", token, "type", bucket.typeID)
				return Result{
					DocumentType:           constants.CategoryOf(bucket.typeID),
					TypeID:                 bucket.typeID,
					Confidence:             bucket.confidence,
					Scores:                 map[constants.TypeID]int{},
					RequiresReverification: true,
				}
			}
		}
	}

	// No token matched; contracts dominate the intake stream.
	return Result{
		DocumentType:           constants.DocTypeContract,
		TypeID:                 constants.TypeContrato,
		Confidence:             0.5,
		Scores:                 map[constants.TypeID]int{},
		RequiresReverification: true,
	}
}
