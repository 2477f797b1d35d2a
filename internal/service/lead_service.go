package service

import (
	"fmt"
	"strings"

	"lead-chat/internal/model"
	"lead-chat/internal/repository"
)

type LeadService struct {
	leadRepo *repository.LeadRepository
}

func NewLeadService(leadRepo *repository.LeadRepository) *LeadService {
	return &LeadService{leadRepo: leadRepo}
}

type CreateLeadRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

func (s *LeadService) Create(ownerID uint, req CreateLeadRequest) (*model.Lead, error) {
	lead := &model.Lead{Name: strings.TrimSpace(req.Name), OwnerID: ownerID}
	if err := s.leadRepo.Create(lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

func (s *LeadService) Get(leadID uint) (*model.Lead, error) {
	lead, err := s.leadRepo.FindByID(leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

func (s *LeadService) List(limit, offset int) ([]model.Lead, error) {
	leads, err := s.leadRepo.List(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}
