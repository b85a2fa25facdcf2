// Package docs регистрирует описание HTTP API киоска для Swagger UI.
// Содержимое повторяет аннотации обработчиков в internal/transport.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/download.csv": {
            "get": {
                "description": "Заголовок и одна строка, CRLF. Состав колонок зависит от режима триажа.",
                "produces": ["text/csv"],
                "tags": ["Kiosk"],
                "summary": "Агрегаты в CSV",
                "responses": {
                    "200": {
                        "description": "CSV attachment",
                        "schema": {"type": "string"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {"type": "string"}
                        }
                    }
                }
            }
        },
        "/oled.json": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Kiosk"],
                "summary": "Текущие четыре строки экрана",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/transport.OLEDDocument"}
                    }
                }
            }
        },
        "/stats.json": {
            "get": {
                "description": "Средний пульс, самооценки, анкеты и счетчики браслетов. Неизвестный цвет дает общий снимок.",
                "produces": ["application/json"],
                "tags": ["Kiosk"],
                "summary": "Групповые агрегаты",
                "parameters": [
                    {
                        "enum": ["green", "yellow", "red", "verde", "amarelo", "vermelho"],
                        "type": "string",
                        "description": "Фильтр по цвету",
                        "name": "color",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/stats.Document"}
                    }
                }
            }
        },
        "/survey_state.json": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Survey"],
                "summary": "Состояние анкеты",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/transport.SurveyStateDocument"}
                    }
                }
            }
        },
        "/survey_submit": {
            "get": {
                "description": "Десять символов 0/1; некорректная строка игнорируется. Ответ всегда 302 на /display.",
                "tags": ["Survey"],
                "summary": "Отправить ответы анкеты",
                "parameters": [
                    {
                        "maxLength": 10,
                        "minLength": 10,
                        "type": "string",
                        "description": "Ответы на 10 вопросов",
                        "name": "ans",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "302": {
                        "description": "Redirect to /display",
                        "schema": {"type": "string"}
                    }
                }
            }
        }
    },
    "definitions": {
        "stats.ColorCounts": {
            "type": "object",
            "properties": {
                "amarelo": {"type": "integer"},
                "verde": {"type": "integer"},
                "vermelho": {"type": "integer"}
            }
        },
        "stats.Document": {
            "type": "object",
            "properties": {
                "ans_mean": {"type": "number", "x-nullable": true},
                "ans_n": {"type": "integer"},
                "bpm_live": {"type": "number"},
                "bpm_mean": {"type": "number", "x-nullable": true},
                "bpm_n": {"type": "integer"},
                "cores": {"$ref": "#/definitions/stats.ColorCounts"},
                "energy_mean": {"type": "number", "x-nullable": true},
                "energy_n": {"type": "integer"},
                "filter": {"type": "string"},
                "humor_mean": {"type": "number", "x-nullable": true},
                "humor_n": {"type": "integer"},
                "needs": {"$ref": "#/definitions/stats.Needs"},
                "no_color_sensor": {"type": "integer"},
                "sample_id": {"type": "integer"},
                "survey_n": {"type": "integer"},
                "survey_yes": {
                    "type": "array",
                    "items": {"type": "integer"}
                }
            }
        },
        "stats.Needs": {
            "type": "object",
            "properties": {
                "no_meal": {"type": "integer"},
                "poor_sleep": {"type": "integer"}
            }
        },
        "transport.OLEDDocument": {
            "type": "object",
            "properties": {
                "l1": {"type": "string"},
                "l2": {"type": "string"},
                "l3": {"type": "string"},
                "l4": {"type": "string"}
            }
        },
        "transport.SurveyStateDocument": {
            "type": "object",
            "properties": {
                "mode": {
                    "type": "integer",
                    "enum": [0, 1]
                }
            }
        }
    }
}`

// SwaggerInfo содержит сведения об API; Host задается при запуске
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "TheraLink Kiosk API",
	Description:      "Paginas e JSON do totem de triagem servidos na porta do quiosque (uma conexao por vez).",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
