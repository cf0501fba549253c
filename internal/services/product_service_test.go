package services_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func TestProductService_GetAllProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	expectedProducts := []models.Product{
		{ID: "1", Name: "Product A", Price: 10.0},
		{ID: "2", Name: "Product B", Price: 20.0},
	}
	mockRepo.On("GetAll", mock.Anything).Return(expectedProducts, nil).Once()

	products, err := service.GetAllProducts(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProductByID(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)
	ctx := context.Background()

	expectedProduct := &models.Product{ID: "1", Name: "Product A", Price: 10.0}
	mockRepo.On("GetByID", mock.Anything, "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProductByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	mockRepo.On("GetByID", mock.Anything, "99").Return(nil, repositories.ErrNotFound).Once()
	product, err = service.GetProductByID(ctx, "99")
	assert.Nil(t, product)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.ErrorIs(t, err, services.ErrNotFound)

	mockRepo.AssertExpectations(t)
}

func TestProductService_SeedCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("empty catalog is seeded", func(t *testing.T) {
		repo := repositories.NewMockProductRepository()
		service := services.NewProductService(repo)

		added, err := service.SeedCatalog(ctx, []models.Product{
			{Name: "Classic Tee", Price: 500},
			{Name: "Denim Jeans", Price: 1200},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		products, err := service.GetAllProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("existing catalog is left alone", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		service := services.NewProductService(mockRepo)
		mockRepo.On("GetAll", mock.Anything).Return([]models.Product{{ID: "1", Name: "Existing", Price: 1}}, nil).Once()

		added, err := service.SeedCatalog(ctx, []models.Product{{Name: "New", Price: 2}})
		require.NoError(t, err)
		assert.Zero(t, added)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repository failure is reported", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		service := services.NewProductService(mockRepo)
		mockRepo.On("GetAll", mock.Anything).Return([]models.Product{}, errors.New("connection refused")).Once()

		_, err := service.SeedCatalog(ctx, []models.Product{{Name: "New", Price: 2}})
		assert.ErrorContains(t, err, "connection refused")
	})
}
