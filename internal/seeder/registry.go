package seeder

import "fmt"

// Registry holds lookup state produced by earlier generators and read by later
// ones. It lives for exactly one run and is append-only.
type Registry struct {
	prices       map[int]Price
	companyNames []string
}

func NewRegistry() *Registry {
	return &Registry{
		prices: make(map[int]Price),
	}
}

func (r *Registry) RecordProductPrice(productID int, price Price) {
	r.prices[productID] = price
}

func (r *Registry) ProductPrice(productID int) (Price, error) {
	price, ok := r.prices[productID]
	if !ok {
		return 0, fmt.Errorf("%w: no price recorded for product %d", ErrRegistryPrecondition, productID)
	}
	return price, nil
}

func (r *Registry) ProductCount() int {
	return len(r.prices)
}

func (r *Registry) AddCompanyName(name string) {
	r.companyNames = append(r.companyNames, name)
}

func (r *Registry) CompanyNameCount() int {
	return len(r.companyNames)
}

// RandomCompanyName picks uniformly from the company names generated so far.
func (r *Registry) RandomCompanyName(rnd *Random) (string, error) {
	if len(r.companyNames) == 0 {
		return "", fmt.Errorf("%w: no company names generated yet", ErrRegistryPrecondition)
	}
	return pick(rnd, r.companyNames), nil
}
