/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package srv

// swaggerJSON describes the HTTP API
const swaggerJSON = `{
  "swagger": "2.0",
  "info": {
    "title": "go-alpide API",
    "description": "Register access to MOSAIC boards and decoding statistics of ALPIDE readout",
    "version": "1.0.0"
  },
  "schemes": ["http"],
  "consumes": ["application/json"],
  "produces": ["application/json"],
  "basePath": "/api",
  "paths": {
    "/reg/r/{board}/{addr}": {
      "get": {
        "summary": "read register",
        "description": "Reads one register from the board and updates the register shadow",
        "parameters": [
          {"$ref": "#/parameters/board"},
          {"name": "addr", "in": "path", "required": true, "type": "string", "description": "hexadecimal address, e.g. 0x10"}
        ],
        "responses": {
          "200": {"description": "register value", "schema": {"$ref": "#/definitions/RegHex"}},
          "400": {"description": "bad address"},
          "404": {"description": "board not found"},
          "502": {"description": "board did not answer or answered with an error"}
        }
      }
    },
    "/reg/r/{board}": {
      "get": {
        "summary": "read register shadow",
        "description": "Returns the last known value of every register accessed on the board",
        "parameters": [{"$ref": "#/parameters/board"}],
        "responses": {
          "200": {"description": "registers", "schema": {"type": "array", "items": {"$ref": "#/definitions/RegHex"}}},
          "404": {"description": "board not found"}
        }
      }
    },
    "/reg/w/{board}": {
      "post": {
        "summary": "write register",
        "parameters": [
          {"$ref": "#/parameters/board"},
          {"name": "reg", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegHex"}}
        ],
        "responses": {
          "200": {"description": "register written", "schema": {"$ref": "#/definitions/RegHex"}},
          "400": {"description": "bad register"},
          "404": {"description": "board not found"},
          "502": {"description": "board did not answer or answered with an error"}
        }
      }
    },
    "/stats/{board}": {
      "get": {
        "summary": "decoding statistics",
        "description": "Stored statistics of the board plus the counters of a running readout",
        "parameters": [{"$ref": "#/parameters/board"}],
        "responses": {
          "200": {"description": "statistics", "schema": {"$ref": "#/definitions/RunStats"}},
          "404": {"description": "board not found"}
        }
      },
      "delete": {
        "summary": "reset stored decoding statistics",
        "parameters": [{"$ref": "#/parameters/board"}],
        "responses": {
          "200": {"description": "statistics reset"},
          "404": {"description": "board not found"}
        }
      }
    }
  },
  "parameters": {
    "board": {"name": "board", "in": "path", "required": true, "type": "string", "description": "board name from the configuration"}
  },
  "definitions": {
    "RegHex": {
      "type": "object",
      "properties": {
        "addr": {"type": "string"},
        "value": {"type": "string"}
      }
    },
    "RunStats": {
      "type": "object",
      "properties": {
        "events": {"type": "integer"},
        "goodEvents": {"type": "integer"},
        "corruptEvents": {"type": "integer"},
        "frameErrors": {"type": "integer"},
        "chipErrors": {"type": "integer"},
        "hits": {"type": "integer"},
        "stuckHits": {"type": "integer"},
        "flaggedHits": {"type": "object", "additionalProperties": {"type": "integer"}},
        "updated": {"type": "string", "format": "date-time"}
      }
    }
  }
}`
