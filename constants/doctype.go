package constants

import "strings"

// DocumentType is the coarse document category driving extractor dispatch.
type DocumentType string

const (
	DocTypeIdentity  DocumentType = "identity"
	DocTypeContract  DocumentType = "contract"
	DocTypeFinancial DocumentType = "financial"
	DocTypeGeneric   DocumentType = "generic"
	DocTypeUnknown   DocumentType = "unknown"
)

// TypeID is the concrete document type as scored by the classifier.
// Values are stable identifiers (store these exact strings in DB).
type TypeID string

const (
	TypeDNI         TypeID = "dni"
	TypePasaporte   TypeID = "pasaporte"
	TypeContrato    TypeID = "contrato"
	TypeExtracto    TypeID = "extracto_bancario"
	TypeNomina      TypeID = "nomina"
	TypeFactura     TypeID = "factura"
	TypeRecibo      TypeID = "recibo"
	TypeKYC         TypeID = "formulario_kyc"
	TypeUnknown     TypeID = "desconocido"
)

// ClassifyOrder is the fixed priority list for classification. Ties on equal
// score resolve to the earliest entry; identity types rank first because a
// misrouted ID is costlier to review than a misrouted contract.
var ClassifyOrder = []TypeID{
	TypeDNI,
	TypePasaporte,
	TypeContrato,
	TypeExtracto,
	TypeNomina,
	TypeFactura,
	TypeRecibo,
	TypeKYC,
}

// CategoryOf maps a concrete type to its coarse category.
func CategoryOf(id TypeID) DocumentType {
	switch id {
	case TypeDNI, TypePasaporte:
		return DocTypeIdentity
	case TypeContrato:
		return DocTypeContract
	case TypeExtracto, TypeNomina, TypeFactura:
		return DocTypeFinancial
	case TypeRecibo, TypeKYC:
		return DocTypeGeneric
	default:
		return DocTypeUnknown
	}
}

// IdentitySubtype is the structural shape of an identity document.
type IdentitySubtype string

const (
	SubtypeDNI          IdentitySubtype = "dni"
	SubtypePasaporte    IdentitySubtype = "pasaporte"
	SubtypeCedulaPanama IdentitySubtype = "cedula_panama"
	SubtypeIDUnknown    IdentitySubtype = "unknown"
)

// ContractSubtype classifies a contract by its product family.
type ContractSubtype string

const (
	ContractPrestamo        ContractSubtype = "prestamo"
	ContractCuentaCorriente ContractSubtype = "cuenta_corriente"
	ContractTarjetaCredito  ContractSubtype = "tarjeta_credito"
	ContractDeposito        ContractSubtype = "deposito"
	ContractGenerico        ContractSubtype = "generico"
)

// ParseTypeID canonicalizes free-form type strings coming from filenames,
// queue payloads or older records.
func ParseTypeID(input string) (TypeID, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return TypeUnknown, false
	}

	synonyms := map[string]TypeID{
		"cedula":          TypeDNI,
		"identidad":       TypeDNI,
		"id":              TypeDNI,
		"passport":        TypePasaporte,
		"contract":        TypeContrato,
		"prestamo":        TypeContrato,
		"extracto":        TypeExtracto,
		"estado_cuenta":   TypeExtracto,
		"planilla":        TypeNomina,
		"invoice":         TypeFactura,
		"receipt":         TypeRecibo,
		"kyc":             TypeKYC,
	}
	if id, ok := synonyms[normalized]; ok {
		return id, true
	}

	for _, id := range ClassifyOrder {
		if normalized == string(id) {
			return id, true
		}
	}
	return TypeUnknown, false
}

// AllTypeIDs returns the classifier's type list as plain strings.
func AllTypeIDs() []string {
	result := make([]string, len(ClassifyOrder))
	for i, id := range ClassifyOrder {
		result[i] = string(id)
	}
	return result
}
