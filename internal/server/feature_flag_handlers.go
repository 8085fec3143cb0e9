package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns the evaluated feature flags for the current user.
// @Summary Feature flags
// @Tags meta
// @Produce json
// @Success 200 {object} object{evaluated=map[string]bool}
// @Router /api/flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{"evaluated": map[string]bool{}})
	}
	return c.JSON(fiber.Map{"evaluated": s.featureFlags.Snapshot(viewerID(c))})
}
