package dataset

import (
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const indexSchema = `{
  "type": "array",
  "items": {
    "anyOf": [
      {"type": "integer"},
      {"type": "string", "pattern": "^\\s*-?[0-9]+\\s*$"}
    ]
  }
}`

const receivedAnswerSchema = `{
  "type": "object",
  "required": ["index", "answer"],
  "properties": {
    "index": ` + indexSchema + `,
    "answer": {"type": "string"},
    "reason": {
      "type": "array",
      "items": {
        "anyOf": [
          {"type": "string"},
          {"type": "object", "properties": {"answer": {"type": "string"}}}
        ]
      }
    }
  }
}`

const receivedSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "received",
  "anyOf": [
    {
      "type": "object",
      "required": ["answer", "info"],
      "properties": {
        "answer": {
          "type": "object",
          "required": ["answers"],
          "properties": {"answers": {"type": "array", "items": ` + receivedAnswerSchema + `}}
        },
        "info": {"type": "array", "items": ` + indexSchema + `}
      }
    },
    {
      "type": "object",
      "required": ["answers"],
      "properties": {"answers": {"type": "array", "items": ` + receivedAnswerSchema + `}}
    }
  ]
}`

const keywordsSchema = `{"type": "array", "items": {"type": "string"}}`

const truthAnswerSchema = `{
  "type": "object",
  "required": ["index", "answer judge keyword"],
  "properties": {
    "index": ` + indexSchema + `,
    "answer": {"type": "string"},
    "answer judge keyword": ` + keywordsSchema + `,
    "reason": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["reason judge keyword"],
        "properties": {"reason judge keyword": ` + keywordsSchema + `}
      }
    }
  }
}`

const truthSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ground truth",
  "type": "object",
  "required": ["answers"],
  "properties": {
    "id": {"type": ["string", "integer", "null"]},
    "answers": {"type": "array", "items": ` + truthAnswerSchema + `},
    "final_answer": {
      "type": "object",
      "required": ["answers"],
      "properties": {
        "answers": {
          "type": "array",
          "items": {"type": "object", "required": ["index"], "properties": {"index": ` + indexSchema + `}}
        }
      }
    }
  }
}`

type schemaRegistry struct {
	once     sync.Once
	initErr  error
	received *jsonschema.Schema
	truth    *jsonschema.Schema
}

var schemas schemaRegistry

func initSchemas() error {
	schemas.once.Do(func() {
		received, err := jsonschema.CompileString("received.schema.json", receivedSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		truth, err := jsonschema.CompileString("truth.schema.json", truthSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		schemas.received = received
		schemas.truth = truth
	})
	return schemas.initErr
}
