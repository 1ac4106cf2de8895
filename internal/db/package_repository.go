package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wishtune-backend-go/internal/models"
)

const creditPackagesCollection = "creditPackages"

// firestoreCreditPackageRepository implements the CreditPackageRepository
// interface using Firestore. Packages are externally managed reference data;
// this repository only reads them.
type firestoreCreditPackageRepository struct {
	client *firestore.Client
}

// NewFirestoreCreditPackageRepository creates a new instance of firestoreCreditPackageRepository.
func NewFirestoreCreditPackageRepository(client *firestore.Client) CreditPackageRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for CreditPackageRepository.")
	}
	return &firestoreCreditPackageRepository{client: client}
}

// GetByID retrieves a credit package by its ID.
func (r *firestoreCreditPackageRepository) GetByID(ctx context.Context, packageID string) (*models.CreditPackage, error) {
	if packageID == "" {
		return nil, errors.New("packageID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(creditPackagesCollection).Doc(packageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("credit package '%s' not found: %w", packageID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credit package '%s': %w", packageID, err)
	}

	var pkg models.CreditPackage
	if err := docSnap.DataTo(&pkg); err != nil {
		return nil, fmt.Errorf("failed to decode credit package '%s': %w", packageID, err)
	}
	pkg.ID = docSnap.Ref.ID
	return &pkg, nil
}

// ListActive returns all packages currently offered for sale.
func (r *firestoreCreditPackageRepository) ListActive(ctx context.Context) ([]*models.CreditPackage, error) {
	iter := r.client.Collection(creditPackagesCollection).Where("active", "==", true).Documents(ctx)
	defer iter.Stop()

	var packages []*models.CreditPackage
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate credit packages: %w", err)
		}
		var pkg models.CreditPackage
		if err := doc.DataTo(&pkg); err != nil {
			log.Printf("Error decoding credit package (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		pkg.ID = doc.Ref.ID
		packages = append(packages, &pkg)
	}
	return packages, nil
}
