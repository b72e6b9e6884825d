package services

import (
	"errors"
	"log"
	"time"

	"event-quest-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// AdminService owns the configuration entities (missions, auctions,
// challenges, teams). These are plain CRUD handlers — the guarded state
// transitions live in the resolvers, not here.
type AdminService struct {
	DB *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{DB: db}
}

// CreateMission creates a mission (or race, when is_race is set).
func (s *AdminService) CreateMission(c *fiber.Ctx) error {
	var req struct {
		Title            string                     `json:"title"`
		Description      string                     `json:"description"`
		Type             models.MissionType         `json:"type"`
		Reward           int64                      `json:"reward"`
		MaxCompletions   int                        `json:"max_completions"`
		StartsAt         *time.Time                 `json:"starts_at"`
		EndsAt           *time.Time                 `json:"ends_at"`
		QRValue          string                     `json:"qr_value"`
		TargetLat        float64                    `json:"target_lat"`
		TargetLng        float64                    `json:"target_lng"`
		RadiusMeters     float64                    `json:"radius_meters"`
		QuizQuestions    []models.QuizQuestionInput `json:"quiz_questions"`
		PassingThreshold int                        `json:"passing_threshold"`
		QuizMode         models.QuizMode            `json:"quiz_mode"`
		IsRace           bool                       `json:"is_race"`
		RacePoints       models.Int64List           `json:"race_points"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Title == "" || req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and type are required"})
	}
	if req.Reward < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reward must be non-negative"})
	}
	switch req.Type {
	case models.MissionTypeQR:
		if req.QRValue == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "qr_value required for qr missions"})
		}
	case models.MissionTypeGPS:
		if req.RadiusMeters <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "radius_meters must be positive for gps missions"})
		}
	case models.MissionTypeQuiz:
		if len(req.QuizQuestions) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quiz_questions required for quiz missions"})
		}
		if req.PassingThreshold < 0 || req.PassingThreshold > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "passing_threshold must be 0-100"})
		}
	case models.MissionTypePhoto, models.MissionTypeManual:
		// no payload to validate
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown mission type"})
	}

	questions := make(models.QuizQuestionList, len(req.QuizQuestions))
	for i, q := range req.QuizQuestions {
		questions[i] = models.QuizQuestion(q)
	}

	m := &models.Mission{
		ID:               uuid.NewString(),
		Slug:             s.uniqueSlug(&models.Mission{}, req.Title),
		Title:            req.Title,
		Description:      req.Description,
		Type:             req.Type,
		Status:           models.MissionStatusInactive,
		Reward:           req.Reward,
		MaxCompletions:   req.MaxCompletions,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		QRValue:          req.QRValue,
		TargetLat:        req.TargetLat,
		TargetLng:        req.TargetLng,
		RadiusMeters:     req.RadiusMeters,
		QuizQuestions:    questions,
		PassingThreshold: req.PassingThreshold,
		QuizMode:         req.QuizMode,
		IsRace:           req.IsRace,
		RacePoints:       req.RacePoints,
	}
	if err := s.DB.Create(m).Error; err != nil {
		log.Printf("DB Error creating mission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create mission"})
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// UpdateMissionStatus flips a mission between active and inactive.
func (s *AdminService) UpdateMissionStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		Status models.MissionStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Status != models.MissionStatusActive && req.Status != models.MissionStatusInactive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid status"})
	}
	res := s.DB.Model(&models.Mission{}).Where("id = ?", id).Update("status", req.Status)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB update failed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
	}
	return c.JSON(fiber.Map{"message": "mission status updated", "status": req.Status})
}

// ListMissions returns missions, optionally filtered by status/type.
func (s *AdminService) ListMissions(c *fiber.Ctx) error {
	query := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if mtype := c.Query("type"); mtype != "" {
		query = query.Where("type = ?", mtype)
	}
	var missions []models.Mission
	if err := query.Find(&missions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch missions"})
	}
	return c.JSON(missions)
}

// GetMission returns one mission by id or slug.
func (s *AdminService) GetMission(c *fiber.Ctx) error {
	id := c.Params("id")
	var m models.Mission
	if err := s.DB.Where("id = ? OR slug = ?", id, id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(m)
}

// CreateAuction registers a new auction in pending state.
func (s *AdminService) CreateAuction(c *fiber.Ctx) error {
	var req struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		ImageURL      string `json:"image_url"`
		StartingPrice int64  `json:"starting_price"`
		MinIncrement  int64  `json:"min_increment"`
		PointsForWin  int64  `json:"points_for_win"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	if req.StartingPrice < 0 || req.MinIncrement <= 0 || req.PointsForWin < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid price configuration"})
	}

	a := &models.Auction{
		ID:            uuid.NewString(),
		Slug:          s.uniqueSlug(&models.Auction{}, req.Title),
		Title:         req.Title,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Status:        models.AuctionStatusPending,
		StartingPrice: req.StartingPrice,
		MinIncrement:  req.MinIncrement,
		CurrentPrice:  req.StartingPrice,
		PointsForWin:  req.PointsForWin,
	}
	if err := s.DB.Create(a).Error; err != nil {
		log.Printf("DB Error creating auction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create auction"})
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// ListAuctions returns auctions, optionally filtered by status.
func (s *AdminService) ListAuctions(c *fiber.Ctx) error {
	query := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var auctions []models.Auction
	if err := query.Find(&auctions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch auctions"})
	}
	return c.JSON(auctions)
}

// GetAuction returns one auction by id or slug.
func (s *AdminService) GetAuction(c *fiber.Ctx) error {
	id := c.Params("id")
	var a models.Auction
	if err := s.DB.Where("id = ? OR slug = ?", id, id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "auction not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(a)
}

// ListChallenges returns challenges, optionally filtered by status.
func (s *AdminService) ListChallenges(c *fiber.Ctx) error {
	query := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var challenges []models.Challenge
	if err := query.Find(&challenges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch challenges"})
	}
	return c.JSON(challenges)
}

// CreateChallenge registers a new challenge in pending state.
func (s *AdminService) CreateChallenge(c *fiber.Ctx) error {
	var req struct {
		Title          string               `json:"title"`
		Description    string               `json:"description"`
		Type           models.ChallengeType `json:"type"`
		PointsMode     models.PointsMode    `json:"points_mode"`
		PointsTable    models.Int64List     `json:"points_table"`
		FixedAmount    int64                `json:"fixed_amount"`
		TopN           int                  `json:"top_n"`
		ParticipantCap int                  `json:"participant_cap"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Title == "" || req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and type are required"})
	}
	switch req.PointsMode {
	case models.PointsModePlacementTable:
		if len(req.PointsTable) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points_table required for placement_table mode"})
		}
	case models.PointsModeTopN:
		if req.TopN <= 0 || len(req.PointsTable) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "top_n and points_table required for top_n_only mode"})
		}
	case models.PointsModeFixed:
		if req.FixedAmount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "fixed_amount must be positive for fixed_amount mode"})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown points mode"})
	}

	ch := &models.Challenge{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		Status:         models.ChallengeStatusPending,
		PointsMode:     req.PointsMode,
		PointsTable:    req.PointsTable,
		FixedAmount:    req.FixedAmount,
		TopN:           req.TopN,
		ParticipantCap: req.ParticipantCap,
	}
	if err := s.DB.Create(ch).Error; err != nil {
		log.Printf("DB Error creating challenge: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create challenge"})
	}
	return c.Status(fiber.StatusCreated).JSON(ch)
}

// UpdateChallengeStatus moves a challenge along pending→active→scoring.
// Completion is not reachable from here — only AwardPoints completes a
// challenge, because completion and crediting must commit together.
func (s *AdminService) UpdateChallengeStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		Status models.ChallengeStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	allowed := map[models.ChallengeStatus][]models.ChallengeStatus{
		models.ChallengeStatusActive:  {models.ChallengeStatusPending},
		models.ChallengeStatusScoring: {models.ChallengeStatusActive},
	}
	from, ok := allowed[req.Status]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid target status"})
	}

	res := s.DB.Model(&models.Challenge{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", req.Status)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB update failed"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "transition not permitted from current status"})
	}
	return c.JSON(fiber.Map{"message": "challenge status updated", "status": req.Status})
}

// CreateTeam registers a team.
func (s *AdminService) CreateTeam(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		ColorHex string `json:"color_hex"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	team := &models.Team{
		ID:       uuid.NewString(),
		Name:     req.Name,
		ColorHex: req.ColorHex,
	}
	if err := s.DB.Create(team).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create team"})
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

// uniqueSlug derives a URL slug from the title, suffixing on collision.
func (s *AdminService) uniqueSlug(model interface{}, title string) string {
	base := slug.Make(title)
	var count int64
	s.DB.Model(model).Where("slug = ?", base).Count(&count)
	if count == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}
