package jsonutl

import (
	"encoding/json"
	"os"

	"github.com/syslab-wm/mu"
)

// Encode writes data to fileName as indented JSON, exiting the process on
// failure. It is meant for cmd/ binaries, not library code.
func Encode(fileName string, data interface{}) {
	file, err := os.Create(fileName)
	if err != nil {
		mu.Fatalf("error creating file: %v", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "    ")
	if err := enc.Encode(data); err != nil {
		mu.Fatalf("error encoding %s: %v", fileName, err)
	}
}

// Decode reads and unmarshals fileName's contents into data, exiting the
// process on failure.
func Decode(fileName string, data interface{}) {
	file, err := os.Open(fileName)
	if err != nil {
		mu.Fatalf("error opening file: %v", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	if err := dec.Decode(data); err != nil {
		mu.Fatalf("error decoding %s: %v", fileName, err)
	}
}
