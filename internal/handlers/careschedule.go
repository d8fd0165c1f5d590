package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/truongnx/plantshop/internal/httpapi"
	"github.com/truongnx/plantshop/internal/middleware/auth"
	"github.com/truongnx/plantshop/internal/models"
)

// CareScheduleHandler manages plant-care reminders attached to products.
type CareScheduleHandler struct {
	DB *gorm.DB
}

type careScheduleRequest struct {
	ProductID uint   `json:"product_id"`
	TaskType  string `json:"task_type"`
	TaskDate  string `json:"task_date"`
	Notes     string `json:"notes"`
}

func parseTaskDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (h *CareScheduleHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req careScheduleRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 || req.TaskType == "" || req.TaskDate == "" {
		return httpapi.Fail(c, http.StatusBadRequest, "product_id, task_type, and task_date are required")
	}

	taskDate, err := parseTaskDate(req.TaskDate)
	if err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid task_date")
	}

	schedule := models.CareSchedule{
		UserID:    userID,
		ProductID: req.ProductID,
		TaskType:  req.TaskType,
		TaskDate:  taskDate,
		Notes:     req.Notes,
	}
	if err := h.DB.WithContext(ctx).Create(&schedule).Error; err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusCreated, "Care schedule created", schedule)
}

func (h *CareScheduleHandler) GetAll(c echo.Context) error {
	var schedules []models.CareSchedule
	if err := h.DB.WithContext(c.Request().Context()).Find(&schedules).Error; err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}
	return httpapi.JSON(c, http.StatusOK, "OK", schedules)
}

func (h *CareScheduleHandler) GetByID(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid id")
	}

	var schedule models.CareSchedule
	if err := h.DB.WithContext(c.Request().Context()).First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Care schedule not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}
	return httpapi.JSON(c, http.StatusOK, "OK", schedule)
}

func (h *CareScheduleHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid id")
	}

	var req careScheduleRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid body")
	}

	var schedule models.CareSchedule
	if err := h.DB.WithContext(ctx).First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Care schedule not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	if req.ProductID != 0 {
		schedule.ProductID = req.ProductID
	}
	if req.TaskType != "" {
		schedule.TaskType = req.TaskType
	}
	if req.TaskDate != "" {
		taskDate, err := parseTaskDate(req.TaskDate)
		if err != nil {
			return httpapi.Fail(c, http.StatusBadRequest, "invalid task_date")
		}
		schedule.TaskDate = taskDate
	}
	schedule.Notes = req.Notes

	if err := h.DB.WithContext(ctx).Save(&schedule).Error; err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "Care schedule updated", schedule)
}

func (h *CareScheduleHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return httpapi.Fail(c, http.StatusBadRequest, "invalid id")
	}

	var schedule models.CareSchedule
	if err := h.DB.WithContext(ctx).First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpapi.Fail(c, http.StatusNotFound, "Care schedule not found")
		}
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	if err := h.DB.WithContext(ctx).Delete(&schedule).Error; err != nil {
		return httpapi.Fail(c, http.StatusInternalServerError, "Server error")
	}

	return httpapi.JSON(c, http.StatusOK, "Care schedule deleted", nil)
}
