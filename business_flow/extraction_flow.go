package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/services"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/repository"
	"github.com/amirphl/quote-core/routing"
	"github.com/amirphl/quote-core/utils"
	"go.uber.org/zap"
)

// ExtractionFlow stores routed extraction results and feeds the secondary verification tiers
type ExtractionFlow interface {
	Ingest(ctx context.Context, req *dto.IngestExtractionsRequest) (*dto.IngestExtractionsResponse, error)
	RouteFields(ctx context.Context, req *dto.RouteFieldsRequest) (*dto.RouteFieldsResponse, error)
}

type ExtractionFlowImpl struct {
	extractionRepo repository.ExtractionFieldResultRepository
	proposalRepo   repository.FixProposalRepository
	queue          services.VerificationQueue
	queueEnabled   bool
	logger         *zap.Logger
}

func NewExtractionFlow(
	extractionRepo repository.ExtractionFieldResultRepository,
	proposalRepo repository.FixProposalRepository,
	queue services.VerificationQueue,
	queueEnabled bool,
	logger *zap.Logger,
) ExtractionFlow {
	return &ExtractionFlowImpl{
		extractionRepo: extractionRepo,
		proposalRepo:   proposalRepo,
		queue:          queue,
		queueEnabled:   queueEnabled,
		logger:         logger,
	}
}

// Ingest routes and stores every field of a document. Fields of a field name under
// post-deployment monitoring are tagged with the monitored proposal.
func (f *ExtractionFlowImpl) Ingest(ctx context.Context, req *dto.IngestExtractionsRequest) (*dto.IngestExtractionsResponse, error) {
	log := flowLogger(ctx, f.logger)

	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}
	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		return nil, NewBusinessError("EXTRACTION_DOCUMENT_REQUIRED", "Document id is required", ErrDocumentIDRequired)
	}
	if len(req.Fields) == 0 {
		return nil, NewBusinessError("EXTRACTION_FIELDS_REQUIRED", "At least one field is required", ErrFieldsRequired)
	}

	values := make(map[string]string, len(req.Fields))
	confidences := make(map[string]float64, len(req.Fields))
	for _, field := range req.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return nil, NewBusinessError("EXTRACTION_FIELDS_REQUIRED", "Field name is required", ErrFieldsRequired)
		}
		if _, dup := values[name]; dup {
			return nil, NewBusinessErrorf("EXTRACTION_DUPLICATE_FIELD", "Field %s is listed more than once", ErrDuplicateField, name)
		}
		values[name] = field.Value
		if field.Confidence != nil {
			confidences[name] = *field.Confidence
		}
	}

	extractedAt := utils.UTCNow()
	if req.ExtractedAt != nil {
		extractedAt = req.ExtractedAt.UTC()
	}

	routes := routing.Annotate(values, confidences)
	monitoring := make(map[string]*uint)
	rows := make([]*models.ExtractionFieldResult, 0, len(routes))
	tasks := make([]services.VerificationTask, 0, len(routes))
	monitored := 0
	for _, route := range routes {
		services.ObserveRoutedField(route.Tier.String())

		proposalID, seen := monitoring[route.Field]
		if !seen {
			proposal, err := f.proposalRepo.MonitoringForField(ctx, tenantID, route.Field)
			if err != nil {
				return nil, NewBusinessError("EXTRACTION_MONITORING_LOOKUP_FAILED", "Failed to look up monitored fixes", err)
			}
			if proposal != nil {
				proposalID = utils.ToPtr(proposal.ID)
			}
			monitoring[route.Field] = proposalID
		}
		if proposalID != nil {
			monitored++
		}

		rows = append(rows, &models.ExtractionFieldResult{
			TenantID:             tenantID,
			DocumentID:           documentID,
			FieldName:            route.Field,
			RawValue:             route.Value,
			Confidence:           route.Confidence,
			Tier:                 route.Tier.String(),
			MonitoringProposalID: proposalID,
			ExtractedAt:          extractedAt,
		})
		tasks = append(tasks, services.VerificationTask{
			TenantID:   tenantID,
			DocumentID: documentID,
			Field:      route.Field,
			Value:      route.Value,
			Confidence: route.Confidence,
			Tier:       route.Tier,
			Action:     route.Tier.Action().Name,
			QueuedAt:   extractedAt,
		})
	}

	if err := f.extractionRepo.SaveBatch(ctx, rows); err != nil {
		return nil, NewBusinessError("EXTRACTION_SAVE_FAILED", "Failed to save extraction results", err)
	}

	queued := 0
	if f.queueEnabled && f.queue != nil {
		queued, err = f.queue.Enqueue(ctx, tasks)
		if err != nil {
			log.Warn("failed to enqueue verification tasks", zap.String("document_id", documentID), zap.Error(err))
			queued = 0
		}
	}

	counts := routing.Counts(routes)
	log.Info("extraction results stored",
		zap.String("document_id", documentID),
		zap.Int("fields", len(rows)),
		zap.Int("queued", queued),
		zap.Int("monitored", monitored),
	)

	return &dto.IngestExtractionsResponse{
		Message:    "Extraction results stored successfully",
		DocumentID: documentID,
		Routes:     routes,
		Counts:     counts,
		Queued:     queued,
		Monitored:  monitored,
	}, nil
}

// RouteFields annotates fields with their tier without storing anything
func (f *ExtractionFlowImpl) RouteFields(ctx context.Context, req *dto.RouteFieldsRequest) (*dto.RouteFieldsResponse, error) {
	if len(req.Values) == 0 {
		return nil, NewBusinessError("ROUTING_FIELDS_REQUIRED", "At least one field is required", ErrFieldsRequired)
	}
	routes := routing.Annotate(req.Values, req.Confidences)
	return &dto.RouteFieldsResponse{
		Message: "Fields routed successfully",
		Routes:  routes,
		Counts:  routing.Counts(routes),
	}, nil
}
