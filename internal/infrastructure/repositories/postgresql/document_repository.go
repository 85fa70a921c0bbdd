package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/domain/repositories"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

type DocumentRepository struct {
	store *Store
}

func (r *DocumentRepository) Insert(ctx context.Context, document *models.Document) error {
	if err := r.store.db.WithContext(ctx).Create(document).Error; err != nil {
		if isDuplicateKeyError(err) {
			return apierrors.Conflict("Duplicate document")
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) UpdateFields(ctx context.Context, documentID uuid.UUID, f models.JSONB) error {
	result := r.store.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", documentID).
		Update("f", f)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apierrors.NotFound(documentID.String())
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, collectionID, documentID uuid.UUID) (*models.Document, error) {
	var document models.Document
	err := r.store.db.WithContext(ctx).
		Where("collection_id = ? AND id = ?", collectionID, documentID).
		First(&document).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound(documentID.String())
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &document, nil
}

// LockForUpdate loads the document row under an exclusive lock. The FOR
// UPDATE clause is only emitted on postgres; sqlite serializes writers on
// its own.
func (r *DocumentRepository) LockForUpdate(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	q := r.store.db.WithContext(ctx)
	if r.store.postgres {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var document models.Document
	err := q.Where("id = ?", documentID).First(&document).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.NotFound(documentID.String())
		}
		return nil, fmt.Errorf("failed to lock document: %w", err)
	}
	return &document, nil
}

func (r *DocumentRepository) CountAndList(ctx context.Context, query repositories.DocumentListQuery) (int64, []models.Document, error) {
	base := r.store.db.WithContext(ctx).
		Table("collection_document").
		Where("collection_id = ?", query.CollectionID)

	deletedAtExpr, err := r.store.jsonFieldExpr(models.FieldDeletedAt)
	if err != nil {
		return 0, nil, err
	}
	switch query.Deleted {
	case repositories.OnlyDeleted:
		base = base.Where("(" + deletedAtExpr + " IS NOT NULL AND " + deletedAtExpr + " <> '')")
	case repositories.IncludeDeleted:
		// no deletion predicate
	default:
		base = base.Where("(" + deletedAtExpr + " IS NULL OR " + deletedAtExpr + " = '')")
	}

	if query.ExactTitle != nil {
		titleExpr, err := r.store.jsonFieldExpr("title")
		if err != nil {
			return 0, nil, err
		}
		base = base.Where(titleExpr+" = ?", *query.ExactTitle)
	}

	if query.UserGrants != nil {
		condition, args := grantsPredicate(query.UserGrants)
		base = base.Where(condition, args...)
	}

	if query.Filter != nil {
		condition, args, err := r.store.lowerFilter(*query.Filter)
		if err != nil {
			return 0, nil, apierrors.BadRequest(err.Error())
		}
		base = base.Where(condition, args...)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to count documents: %w", err)
	}

	order, err := r.store.orderClause(query.Sort)
	if err != nil {
		return 0, nil, apierrors.BadRequest(err.Error())
	}

	fields := projectedFields(query.ExtraFields)
	selects := []string{"id"}
	for _, field := range fields {
		expr, err := r.store.jsonFieldExpr(field)
		if err != nil {
			return 0, nil, apierrors.BadRequest(err.Error())
		}
		selects = append(selects, fmt.Sprintf("%s AS \"%s\"", expr, field))
	}

	var rows []map[string]interface{}
	err = base.Session(&gorm.Session{}).
		Select(strings.Join(selects, ", ")).
		Order(order).
		Limit(query.Limit).
		Offset(query.Offset).
		Find(&rows).Error
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list documents: %w", err)
	}

	documents := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		id, err := scanUUID(derefScanned(row["id"]))
		if err != nil {
			return 0, nil, fmt.Errorf("failed to parse document id: %w", err)
		}
		f := make(models.JSONB, len(fields))
		for _, field := range fields {
			if value := derefScanned(row[field]); value != nil {
				f[field] = normalizeScanned(value)
			}
		}
		documents = append(documents, models.Document{
			ID:           id,
			CollectionID: query.CollectionID,
			F:            f,
		})
	}
	return total, documents, nil
}

func (r *DocumentRepository) ListAll(ctx context.Context, collectionID uuid.UUID) ([]models.Document, error) {
	var documents []models.Document
	err := r.store.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("id ASC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list collection documents: %w", err)
	}
	return documents, nil
}

// projectedFields is the reduced key set of a list item: title plus the
// requested extras, deduplicated.
func projectedFields(extraFields []string) []string {
	fields := []string{"title"}
	for _, field := range extraFields {
		if field == "title" {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

// grantsPredicate builds the visibility condition: the document must carry
// at least one grant the caller holds. A caller holding no grants sees
// nothing.
func grantsPredicate(userGrants []grants.Grant) (string, []interface{}) {
	if len(userGrants) == 0 {
		return "1 = 0", nil
	}
	pairs := make([]string, 0, len(userGrants))
	args := make([]interface{}, 0, 2*len(userGrants))
	for _, g := range userGrants {
		pairs = append(pairs, `(g.realm = ? AND g."grant" = ?)`)
		args = append(args, g.Realm, g.Grant)
	}
	condition := `EXISTS (SELECT 1 FROM "grant" g WHERE g.document_id = collection_document.id AND g.view AND (` +
		strings.Join(pairs, " OR ") + "))"
	return condition, args
}

// derefScanned unwraps the pointer cells gorm produces when scanning into a
// map row.
func derefScanned(value interface{}) interface{} {
	if p, ok := value.(*interface{}); ok {
		if p == nil {
			return nil
		}
		return *p
	}
	return value
}

func scanUUID(value interface{}) (uuid.UUID, error) {
	switch v := value.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		return uuid.ParseBytes(v)
	default:
		return uuid.Nil, fmt.Errorf("unsupported id type %T", value)
	}
}

// normalizeScanned converts driver-specific scan results into JSON-friendly
// values.
func normalizeScanned(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case int64:
		return float64(v)
	default:
		return v
	}
}
