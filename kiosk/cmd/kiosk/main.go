package main

import (
	_ "github.com/Krimson/triage-kiosk/kiosk/docs" // Swagger docs
)

// @title TheraLink Kiosk API
// @version 1.0
// @description Paginas e JSON do totem de triagem servidos na porta do quiosque (uma conexao por vez).

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /

func main() {
	Execute()
}
