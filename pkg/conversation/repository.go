package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TurnRecord struct {
	ID        string         `gorm:"primaryKey;column:id"`
	SessionID string         `gorm:"column:session_id;uniqueIndex:idx_turn_session_seq,priority:1"`
	Seq       int64          `gorm:"column:seq;autoIncrement:false;uniqueIndex:idx_turn_session_seq,priority:2"`
	Role      string         `gorm:"column:role"`
	Content   string         `gorm:"column:content;type:text"`
	SQL       string         `gorm:"column:sql;type:text"`
	Data      datatypes.JSON `gorm:"column:data"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (TurnRecord) TableName() string {
	return "conversation_turns"
}

// TranscriptRepository stores turns for later audit. It is a Recorder.
type TranscriptRepository struct {
	db *gorm.DB
}

func NewTranscriptRepository(db *gorm.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func (r *TranscriptRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&TurnRecord{})
}

func (r *TranscriptRepository) RecordTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	row, err := toRecord(sessionID, turn)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *TranscriptRepository) ListBySession(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	var rows []TurnRecord
	result := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	turns := make([]models.ConversationTurn, 0, len(rows))
	for _, row := range rows {
		turn, err := fromRecord(row)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func toRecord(sessionID string, turn models.ConversationTurn) (TurnRecord, error) {
	row := TurnRecord{
		ID:        turn.ID,
		SessionID: sessionID,
		Seq:       turn.Seq,
		Role:      string(turn.Role),
		Content:   turn.Content,
		SQL:       turn.SQL,
		CreatedAt: turn.CreatedAt,
	}
	if turn.Data != nil {
		raw, err := json.Marshal(turn.Data)
		if err != nil {
			return TurnRecord{}, fmt.Errorf("encoding simulated result: %w", err)
		}
		row.Data = datatypes.JSON(raw)
	}
	return row, nil
}

func fromRecord(row TurnRecord) (models.ConversationTurn, error) {
	turn := models.ConversationTurn{
		ID:        row.ID,
		Seq:       row.Seq,
		Role:      models.TurnRole(row.Role),
		Content:   row.Content,
		SQL:       row.SQL,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Data) > 0 {
		var result models.SimulatedResult
		if err := json.Unmarshal(row.Data, &result); err != nil {
			return models.ConversationTurn{}, fmt.Errorf("decoding simulated result: %w", err)
		}
		turn.Data = &result
	}
	return turn, nil
}
