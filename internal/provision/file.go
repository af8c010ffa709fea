// Package provision loads the restaurant setup (menu, staff, tables) into the database.
package provision

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ItemSpec struct {
	Name        string `yaml:"name" validate:"required,max=64"`
	Description string `yaml:"description" validate:"max=1024"`
	Price       int64  `yaml:"price" validate:"gte=0"`
}

type EmployeeSpec struct {
	Salary float64 `yaml:"salary" validate:"gte=0"`
}

// File is the provisioning document.
type File struct {
	// Tables is the number of tables that must have a QR code.
	Tables    int            `yaml:"tables" validate:"gte=0,lte=1000"`
	Items     []ItemSpec     `yaml:"items" validate:"unique=Name,dive"`
	Employees []EmployeeSpec `yaml:"employees" validate:"dive"`
}

func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("provision: failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes and validates a document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("provision: failed to decode file: %w", err)
	}

	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("provision: invalid file: %w", err)
	}

	return &file, nil
}
