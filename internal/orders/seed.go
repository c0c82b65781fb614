package orders

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/crmgeek/backend/internal/contracts"
)

// Seed is the demo data loaded into a MemoryRepository
type Seed struct {
	Products []SeedProduct `yaml:"products"`
	Clients  []SeedClient  `yaml:"clients"`
}

type SeedProduct struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Stock int     `yaml:"stock"`
	Price float64 `yaml:"price"`
}

type SeedClient struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Seller string `yaml:"seller"`
}

// LoadSeed reads a seed YAML file; unknown keys are rejected
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}

	for _, p := range seed.Products {
		if p.ID == "" || p.Stock < 0 {
			return nil, fmt.Errorf("seed product %q: id required and stock must not be negative", p.ID)
		}
	}
	for _, c := range seed.Clients {
		if c.ID == "" || c.Seller == "" {
			return nil, fmt.Errorf("seed client %q: id and seller required", c.ID)
		}
	}
	return &seed, nil
}

// Load puts the seed's products and clients into the repository
func (r *MemoryRepository) Load(seed *Seed) {
	for _, p := range seed.Products {
		r.PutProduct(contracts.Product{ID: p.ID, Name: p.Name, Stock: p.Stock, Price: p.Price})
	}
	for _, c := range seed.Clients {
		r.PutClient(contracts.Client{ID: c.ID, Name: c.Name, SellerID: c.Seller})
	}
}
