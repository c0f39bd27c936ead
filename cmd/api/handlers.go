package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wms-platform/cutoff-service/internal/application"
	"github.com/wms-platform/cutoff-service/pkg/logging"
	"github.com/wms-platform/cutoff-service/pkg/middleware"
)

const deliveryDateLayout = "2006-01-02"

type orderItemRequest struct {
	ProductID      string           `json:"productId" binding:"required,product_id"`
	Quantity       int              `json:"quantity" binding:"required,min=1,max=10000"`
	WeightFactor   *decimal.Decimal `json:"weightFactor"`
	LocationFactor *decimal.Decimal `json:"locationFactor"`
}

type capacityCheckRequest struct {
	OrderID      string             `json:"orderId" binding:"omitempty,order_id"`
	CustomerID   string             `json:"customerId" binding:"omitempty,max=64"`
	Priority     string             `json:"priority" binding:"omitempty,priority"`
	WarehouseID  string             `json:"warehouseId" binding:"omitempty,warehouse_id"`
	DeliveryDate string             `json:"deliveryDate" binding:"omitempty,datetime=2006-01-02"`
	Items        []orderItemRequest `json:"items" binding:"required,min=1,max=1000,dive"`
}

type cutoffQuery struct {
	WarehouseID string `form:"warehouseId" json:"warehouseId" binding:"omitempty,warehouse_id"`
}

type warehouseURI struct {
	WarehouseID string `uri:"warehouseId" json:"warehouseId" binding:"required,warehouse_id"`
}

type simulateRequest struct {
	ScenarioName       string             `json:"scenarioName" binding:"required,max=64"`
	WarehouseID        string             `json:"warehouseId" binding:"omitempty,warehouse_id"`
	Orders             []orderItemRequest `json:"orders" binding:"required,min=1,max=100,dive"`
	TimeHorizonMinutes int                `json:"timeHorizonMinutes" binding:"required,min=5,max=480"`
}

type scenarioURI struct {
	Name string `uri:"name" json:"name" binding:"required,scenario"`
}

func toItemInputs(items []orderItemRequest) []application.OrderItemInput {
	out := make([]application.OrderItemInput, len(items))
	for i, item := range items {
		out[i] = application.OrderItemInput{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			WeightFactor:   item.WeightFactor,
			LocationFactor: item.LocationFactor,
		}
	}
	return out
}

func checkCapacityHandler(service *application.CutoffService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req capacityCheckRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.CheckCapacityCommand{
			OrderID:     req.OrderID,
			CustomerID:  req.CustomerID,
			Priority:    req.Priority,
			WarehouseID: req.WarehouseID,
			Items:       toItemInputs(req.Items),
		}
		if req.DeliveryDate != "" {
			// Format already checked by the datetime tag
			date, _ := time.Parse(deliveryDateLayout, req.DeliveryDate)
			cmd.DeliveryDate = &date
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"warehouse.id": req.WarehouseID,
			"order.id":     req.OrderID,
			"order.items":  len(req.Items),
		})

		result, err := service.CheckCapacity(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func currentCutoffHandler(service *application.CutoffService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var query cutoffQuery
		if appErr := middleware.BindQuery(c, &query); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		result, err := service.GetCurrentCutoff(c.Request.Context(), application.GetCutoffQuery{WarehouseID: query.WarehouseID})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func simulateHandler(service *application.CutoffService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req simulateRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		result, err := service.Simulate(c.Request.Context(), application.SimulateCommand{
			ScenarioName:       req.ScenarioName,
			WarehouseID:        req.WarehouseID,
			Orders:             toItemInputs(req.Orders),
			TimeHorizonMinutes: req.TimeHorizonMinutes,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func warehouseStatusHandler(service *application.CutoffService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var uri warehouseURI
		if appErr := middleware.BindURI(c, &uri); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"warehouse.id": uri.WarehouseID,
		})

		result, err := service.GetWarehouseStatus(c.Request.Context(), application.GetWarehouseStatusQuery{WarehouseID: uri.WarehouseID})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func listScenariosHandler(service *application.DemoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.ListScenarios(c.Request.Context()))
	}
}

func switchScenarioHandler(service *application.DemoService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var uri scenarioURI
		if err := c.ShouldBindUri(&uri); err != nil {
			responder.RespondNotFound("scenario", c.Param("name"))
			return
		}

		result, err := service.SwitchScenario(c.Request.Context(), application.SwitchScenarioCommand{Name: uri.Name})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
