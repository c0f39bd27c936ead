package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/mongodb"
)

const (
	capacityCollection = "warehouse_capacity"
	workloadCollection = "cutoff_calculations"

	resourceDateLayout = "2006-01-02"
)

// capacityDocument is one day of staffing for a warehouse
type capacityDocument struct {
	WarehouseID      string    `bson:"warehouseId"`
	ResourceDate     string    `bson:"resourceDate"`
	AvailablePickers int       `bson:"availablePickers"`
	AvailablePackers int       `bson:"availablePackers"`
	AvailableLoaders int       `bson:"availableLoaders"`
	UpdatedAt        time.Time `bson:"updatedAt"`
}

// workloadDocument is the latest committed-workload calculation
type workloadDocument struct {
	WarehouseID            string               `bson:"warehouseId"`
	TotalRemainingWorkload primitive.Decimal128 `bson:"totalRemainingWorkload"`
	CurrentUtilization     primitive.Decimal128 `bson:"currentUtilization"`
	SystemStatus           string               `bson:"systemStatus"`
	OrdersInQueue          int                  `bson:"ordersInQueue"`
	CalculatedAt           time.Time            `bson:"calculatedAt"`
}

// WarehouseRepository reads warehouse state from MongoDB
type WarehouseRepository struct {
	capacity *mongo.Collection
	workload *mongo.Collection
}

// NewWarehouseRepository creates a repository over db and ensures indexes
func NewWarehouseRepository(db *mongo.Database) *WarehouseRepository {
	repo := &WarehouseRepository{
		capacity: db.Collection(capacityCollection),
		workload: db.Collection(workloadCollection),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func (r *WarehouseRepository) ensureIndexes(ctx context.Context) {
	r.capacity.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "warehouseId", Value: 1}, {Key: "resourceDate", Value: -1}},
			Options: options.Index().SetUnique(true),
		},
	})
	r.workload.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "warehouseId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
}

// Name identifies the data source
func (r *WarehouseRepository) Name() string { return "mongodb" }

// HealthCheck pings the server
func (r *WarehouseRepository) HealthCheck(ctx context.Context) error {
	return r.capacity.Database().Client().Ping(ctx, nil)
}

// GetCurrentCapacity returns the staffing of warehouseID on date, falling
// back to the most recent earlier day when date has no entry.
func (r *WarehouseRepository) GetCurrentCapacity(ctx context.Context, warehouseID string, date time.Time) (domain.ResourceCounts, error) {
	filter := bson.M{
		"warehouseId":  warehouseID,
		"resourceDate": bson.M{"$lte": date.Format(resourceDateLayout)},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "resourceDate", Value: -1}})

	var doc capacityDocument
	err := r.capacity.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ResourceCounts{}, fmt.Errorf("%w: no capacity for %s on %s", domain.ErrWarehouseNotFound, warehouseID, date.Format(resourceDateLayout))
	}
	if err != nil {
		return domain.ResourceCounts{}, fmt.Errorf("failed to query warehouse capacity: %w", err)
	}

	day, err := time.Parse(resourceDateLayout, doc.ResourceDate)
	if err != nil {
		return domain.ResourceCounts{}, fmt.Errorf("invalid resource date %q for %s: %w", doc.ResourceDate, warehouseID, err)
	}

	return domain.ResourceCounts{
		WarehouseID:      doc.WarehouseID,
		Date:             day,
		AvailablePickers: doc.AvailablePickers,
		AvailablePackers: doc.AvailablePackers,
		AvailableLoaders: doc.AvailableLoaders,
	}, nil
}

// GetCommittedWorkload returns the latest calculation for warehouseID
func (r *WarehouseRepository) GetCommittedWorkload(ctx context.Context, warehouseID string) (domain.CommittedWorkload, error) {
	var doc workloadDocument
	err := r.workload.FindOne(ctx, bson.M{"warehouseId": warehouseID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.CommittedWorkload{}, fmt.Errorf("%w: no committed workload for %s", domain.ErrWarehouseNotFound, warehouseID)
	}
	if err != nil {
		return domain.CommittedWorkload{}, fmt.Errorf("failed to query committed workload: %w", err)
	}
	return doc.toDomain()
}

func (d workloadDocument) toDomain() (domain.CommittedWorkload, error) {
	total, err := mongodb.FromDecimal128(d.TotalRemainingWorkload)
	if err != nil {
		return domain.CommittedWorkload{}, fmt.Errorf("invalid remaining workload for %s: %w", d.WarehouseID, err)
	}
	utilization, err := mongodb.FromDecimal128(d.CurrentUtilization)
	if err != nil {
		return domain.CommittedWorkload{}, fmt.Errorf("invalid utilization for %s: %w", d.WarehouseID, err)
	}

	status := domain.DecisionStatus(d.SystemStatus)
	if !status.IsValid() {
		status = domain.ClassifyStatus(utilization)
	}

	return domain.CommittedWorkload{
		WarehouseID:            d.WarehouseID,
		TotalRemainingWorkload: total,
		CurrentUtilization:     utilization,
		SystemStatus:           status,
		OrdersInQueue:          d.OrdersInQueue,
	}, nil
}

// SaveCapacity upserts the staffing of one warehouse day
func (r *WarehouseRepository) SaveCapacity(ctx context.Context, counts domain.ResourceCounts) error {
	doc := capacityDocument{
		WarehouseID:      counts.WarehouseID,
		ResourceDate:     counts.Date.Format(resourceDateLayout),
		AvailablePickers: counts.AvailablePickers,
		AvailablePackers: counts.AvailablePackers,
		AvailableLoaders: counts.AvailableLoaders,
		UpdatedAt:        time.Now().UTC(),
	}
	filter := bson.M{"warehouseId": doc.WarehouseID, "resourceDate": doc.ResourceDate}

	if _, err := r.capacity.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save warehouse capacity: %w", err)
	}
	return nil
}

// SaveCommittedWorkload upserts the latest calculation of one warehouse
func (r *WarehouseRepository) SaveCommittedWorkload(ctx context.Context, w domain.CommittedWorkload) error {
	total, err := mongodb.ToDecimal128(w.TotalRemainingWorkload)
	if err != nil {
		return fmt.Errorf("invalid remaining workload: %w", err)
	}
	utilization, err := mongodb.ToDecimal128(w.CurrentUtilization)
	if err != nil {
		return fmt.Errorf("invalid utilization: %w", err)
	}

	doc := workloadDocument{
		WarehouseID:            w.WarehouseID,
		TotalRemainingWorkload: total,
		CurrentUtilization:     utilization,
		SystemStatus:           string(w.SystemStatus),
		OrdersInQueue:          w.OrdersInQueue,
		CalculatedAt:           time.Now().UTC(),
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.workload.UpdateOne(ctx, bson.M{"warehouseId": w.WarehouseID}, bson.M{"$set": doc}, opts); err != nil {
		return fmt.Errorf("failed to save committed workload: %w", err)
	}
	return nil
}
