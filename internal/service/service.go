package service

import (
	"github.com/alexivanou/citybrowser/internal/repository"
	"go.uber.org/zap"
)

// Service provides search and favorite operations over the city store
type Service struct {
	cityRepo repository.CityRepository
	logger   *zap.Logger
}

// NewService creates a new service instance
func NewService(cityRepo repository.CityRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cityRepo: cityRepo,
		logger:   logger,
	}
}
