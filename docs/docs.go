// Package docs publica la especificación OpenAPI de la API del ledger.
//
// swagger.json se mantiene junto a las anotaciones @Router de los handlers;
// cmd/api la sirve en /docs y los tests del router verifican que cada ruta
// registrada figure en ella.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerJSON string

// SwaggerInfo metadatos de la especificación.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Stock Ledger API",
	Description:      "Inventario por producto y bodega.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerJSON,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// FilePath ruta relativa (desde la raíz del repo) que lee el middleware de Swagger UI.
const FilePath = "./docs/swagger.json"

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
