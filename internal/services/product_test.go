package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplite/apiserver/types"
)

type fakeProductRepo struct {
	lastOffset int
	lastLimit  int
	products   []types.Product
}

func (f *fakeProductRepo) List(_ context.Context, offset, limit int) ([]types.Product, int, error) {
	f.lastOffset = offset
	f.lastLimit = limit
	return f.products, len(f.products), nil
}

func (f *fakeProductRepo) Get(_ context.Context, id string) (types.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Product{}, assert.AnError
}

func (f *fakeProductRepo) Create(_ context.Context, product types.Product) (types.Product, error) {
	f.products = append(f.products, product)
	return product, nil
}

func TestProductListClampsLimit(t *testing.T) {
	repo := &fakeProductRepo{}
	service := NewProductService(repo)

	_, _, err := service.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastLimit)

	_, _, err = service.List(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastLimit)

	_, _, err = service.List(context.Background(), 40, 25)
	require.NoError(t, err)
	assert.Equal(t, 40, repo.lastOffset)
	assert.Equal(t, 25, repo.lastLimit)
}
