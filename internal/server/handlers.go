package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/models"
	"github.com/julianstephens/streaks/internal/service"
	"github.com/julianstephens/streaks/internal/validation"
)

type handler struct {
	svc *service.Service
}

type habitRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	TargetFrequency *int    `json:"targetFrequency"`
}

type taskRequest struct {
	Title   string     `json:"title"`
	Note    *string    `json:"note"`
	DueDate *time.Time `json:"dueDate"`
}

// habitResponse adds the derived streak, which the stored form leaves out.
type habitResponse struct {
	habit *models.Habit
}

func newHabitResponse(h *models.Habit) habitResponse {
	return habitResponse{habit: h}
}

func (r habitResponse) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(r.habit)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	fields["currentStreak"], _ = json.Marshal(r.habit.CurrentStreak())
	fields["isCompletedToday"], _ = json.Marshal(r.habit.IsCompletedToday())
	return json.Marshal(fields)
}

func (h *handler) listHabits(c *gin.Context) {
	habits := h.svc.ListHabits(c.Request.Context())
	out := make([]habitResponse, 0, len(habits))
	for _, habit := range habits {
		out = append(out, newHabitResponse(habit))
	}
	c.JSON(http.StatusOK, gin.H{"habits": out})
}

func (h *handler) createHabit(c *gin.Context) {
	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	habit, err := h.svc.AddHabit(c.Request.Context(), service.HabitInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newHabitResponse(habit))
}

func (h *handler) updateHabit(c *gin.Context) {
	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	habit, err := h.svc.EditHabit(c.Request.Context(), c.Param("id"), service.HabitInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newHabitResponse(habit))
}

func (h *handler) deleteHabit(c *gin.Context) {
	if _, err := h.svc.DeleteHabit(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) toggleHabit(c *gin.Context) {
	habit, err := h.svc.ToggleHabit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newHabitResponse(habit))
}

func (h *handler) markHabit(done bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, err := models.ParseDay(c.Param("day"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
			return
		}
		if day.DaysSince(models.Today()) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day is in the future"})
			return
		}

		habit, err := h.svc.MarkHabit(c.Request.Context(), c.Param("id"), day, done)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, newHabitResponse(habit))
	}
}

func (h *handler) listTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.svc.ListTasks(c.Request.Context())})
}

func (h *handler) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.svc.AddTask(c.Request.Context(), service.TaskInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *handler) updateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.svc.EditTask(c.Request.Context(), c.Param("id"), service.TaskInput(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *handler) deleteTask(c *gin.Context) {
	if _, err := h.svc.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) toggleTask(c *gin.Context) {
	task, err := h.svc.ToggleTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *handler) calendar(c *gin.Context) {
	day := models.Today()
	if raw := c.Query("day"); raw != "" {
		parsed, err := models.ParseDay(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}
	c.JSON(http.StatusOK, h.svc.Calendar(c.Request.Context(), day))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, validation.ErrEmptyName),
		errors.Is(err, validation.ErrEmptyTitle),
		errors.Is(err, validation.ErrInvalidFrequency):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrHabitNotFound), errors.Is(err, models.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAmbiguous):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save changes"})
	}
}
