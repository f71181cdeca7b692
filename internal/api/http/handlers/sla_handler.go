package handlers

import (
	"math"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sav-service/internal/api/dto"
	"github.com/spec-kit/sav-service/internal/domain"
	"github.com/spec-kit/sav-service/internal/service"
	apperrors "github.com/spec-kit/sav-service/pkg/util/errorutil"
)

// SLAHandler exposes the business calendar, previews and SLA rules.
type SLAHandler struct {
	sla *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{sla: slaService}
}

// Calendar GET /sla/calendar.
func (h *SLAHandler) Calendar(c *fiber.Ctx) error {
	cal := h.sla.Calendar()
	cfg := cal.Config()
	days := make([]int, 0, len(cfg.WorkDays))
	for _, d := range cfg.WorkDays {
		days = append(days, int(d))
	}
	holidays := append([]string{}, cfg.Holidays...)
	return c.JSON(fiber.Map{"data": dto.CalendarResponse{
		Timezone:    cal.Location().String(),
		StartHour:   cfg.StartHour,
		EndHour:     cfg.EndHour,
		HoursPerDay: cal.HoursPerDay(),
		WorkDays:    days,
		Holidays:    holidays,
		Thresholds:  h.sla.Defaults(),
	}})
}

// Preview POST /sla/preview.
func (h *SLAHandler) Preview(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SLAPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.PreviewInput{
		CreatedAt: req.CreatedAt,
		Priority:  strings.TrimSpace(req.Priority),
		Now:       req.Now,
		ClientID:  req.ClientID,
	}
	if principal.Role == domain.RoleClient {
		input.ClientID = principal.ClientID
	}
	ev, err := h.sla.Preview(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaResponse(ev)})
}

// GetGlobalRule GET /sla/rules.
func (h *SLAHandler) GetGlobalRule(c *fiber.Ctx) error {
	return h.getRule(c, nil)
}

// GetClientRule GET /sla/rules/:client_id.
func (h *SLAHandler) GetClientRule(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	return h.getRule(c, &clientID)
}

// PutGlobalRule PUT /sla/rules.
func (h *SLAHandler) PutGlobalRule(c *fiber.Ctx) error {
	return h.putRule(c, nil)
}

// PutClientRule PUT /sla/rules/:client_id.
func (h *SLAHandler) PutClientRule(c *fiber.Ctx) error {
	clientID := c.Params("client_id")
	return h.putRule(c, &clientID)
}

func (h *SLAHandler) getRule(c *fiber.Ctx, clientID *string) error {
	view, err := h.sla.GetRule(c.UserContext(), clientID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(view)})
}

func (h *SLAHandler) putRule(c *fiber.Ctx, clientID *string) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SLARuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.sla.UpsertRule(c.UserContext(), principal, clientID, req.Thresholds)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(view)})
}

func ruleResponse(view *service.RuleView) dto.SLARuleResponse {
	resp := dto.SLARuleResponse{
		ClientID:  view.ClientID,
		Stored:    map[string]int{},
		Effective: view.Effective,
	}
	if view.Rule != nil {
		resp.Stored = view.Rule.Thresholds
		resp.UpdatedBy = view.Rule.UpdatedBy
		updated := view.Rule.UpdatedAt
		if !updated.IsZero() {
			resp.UpdatedAt = &updated
		}
	}
	return resp
}

func slaResponse(ev *service.Evaluation) *dto.SLAResponse {
	if ev == nil {
		return nil
	}
	resp := &dto.SLAResponse{
		Label:          ev.Label,
		Classification: string(ev.Classification),
	}
	if !ev.Computed {
		return resp
	}
	st := ev.Status
	deadline := st.Deadline
	resp.Deadline = &deadline
	resp.Overdue = st.Countdown.Overdue
	resp.Days = st.Countdown.Magnitude.Days
	resp.Hours = st.Countdown.Magnitude.Hours
	resp.Minutes = st.Countdown.Magnitude.Minutes
	resp.ElapsedHours = roundTo(st.ElapsedHours, 2)
	resp.ProgressPercent = roundTo(st.ProgressPercent, 1)
	resp.ThresholdHours = st.ThresholdHours
	return resp
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
