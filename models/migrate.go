package models

import "gorm.io/gorm"

// All returns every persisted entity in migration order
func All() []any {
	return []any{
		&PricingFactor{},
		&CompanyConfig{},
		&DynamicAdjustment{},
		&MaterialCatalogEntry{},
		&SurchargeRule{},
		&ExtractionFieldResult{},
		&FailurePattern{},
		&AnalysisRun{},
		&FixProposal{},
		&FixProposalAudit{},
		&KnowledgeEntry{},
		&PriceCalculation{},
	}
}

// AutoMigrate creates or updates the tables of every entity
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
