package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zhumataybara/quiz-app/models"
)

// GormStore is the postgres-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GameByID(ctx context.Context, id string) (*models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).
		Preload("Rounds", func(db *gorm.DB) *gorm.DB {
			return db.Order("rounds.order_index ASC")
		}).
		Preload("Rounds.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index ASC")
		}).
		Preload("Rounds.Questions.AcceptedAnswers", func(db *gorm.DB) *gorm.DB {
			return db.Order("accepted_answers.created_at ASC")
		}).
		Preload("Rounds.Questions.Answers").
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("players.joined_at ASC")
		}).
		First(&game, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading game %s: %w", id, err)
	}
	return &game, nil
}

func (s *GormStore) GameIDByRoomCode(ctx context.Context, code string) (string, error) {
	var game models.Game
	err := s.db.WithContext(ctx).
		Select("id").
		Where("UPPER(room_code) = ?", strings.ToUpper(code)).
		First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up room code %s: %w", code, err)
	}
	return game.ID, nil
}

func (s *GormStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	if err := s.db.WithContext(ctx).Create(player).Error; err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	return nil
}

func (s *GormStore) UpdatePlayer(ctx context.Context, player *models.Player) error {
	err := s.db.WithContext(ctx).Model(&models.Player{}).
		Where("id = ?", player.ID).
		Updates(map[string]interface{}{
			"connection_id": player.ConnectionID,
			"is_connected":  player.IsConnected,
			"last_seen_at":  player.LastSeenAt,
		}).Error
	if err != nil {
		return fmt.Errorf("updating player %s: %w", player.ID, err)
	}
	return nil
}

func (s *GormStore) UpsertAnswer(ctx context.Context, answer *models.Answer) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_id", "submitted_text", "submitted_at", "updated_at",
		}),
	}).Create(answer).Error
	if err != nil {
		return fmt.Errorf("upserting answer: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateRoundState(ctx context.Context, roundID string, state models.RoundState) error {
	res := s.db.WithContext(ctx).Model(&models.Round{}).
		Where("id = ?", roundID).
		Update("state", state)
	if res.Error != nil {
		return fmt.Errorf("updating round %s state: %w", roundID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ActivateRound(ctx context.Context, gameID, roundID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Round{}).
			Where("id = ?", roundID).
			Update("state", models.RoundStateActive).Error; err != nil {
			return err
		}
		return tx.Model(&models.Game{}).
			Where("id = ?", gameID).
			Updates(map[string]interface{}{
				"current_round_id": roundID,
				"status":           models.GameStatusActive,
			}).Error
	})
}

func (s *GormStore) RevealRound(ctx context.Context, write RevealWrite) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, a := range write.Answers {
			if err := tx.Model(&models.Answer{}).
				Where("id = ?", a.AnswerID).
				Updates(map[string]interface{}{
					"is_correct":    a.IsCorrect,
					"points_earned": a.PointsEarned,
					"updated_at":    now,
				}).Error; err != nil {
				return err
			}
		}
		for playerID, increment := range write.ScoreIncrements {
			if err := tx.Model(&models.Player{}).
				Where("id = ?", playerID).
				Update("total_score", gorm.Expr("total_score + ?", increment)).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Round{}).
			Where("id = ?", write.RoundID).
			Update("state", models.RoundStateRevealed).Error; err != nil {
			return err
		}
		if write.FinishGameID != "" {
			if err := tx.Model(&models.Game{}).
				Where("id = ?", write.FinishGameID).
				Update("status", models.GameStatusFinished).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) ResetGame(ctx context.Context, gameID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Game{}).
			Where("id = ?", gameID).
			Updates(map[string]interface{}{
				"status":           models.GameStatusLobby,
				"current_round_id": nil,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Round{}).
			Where("game_id = ?", gameID).
			Update("state", models.RoundStateWaiting).Error; err != nil {
			return err
		}
		// Answers first, they reference players.
		if err := tx.Where("player_id IN (?)",
			tx.Model(&models.Player{}).Select("id").Where("game_id = ?", gameID),
		).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Where("game_id = ?", gameID).Delete(&models.Player{}).Error
	})
}
