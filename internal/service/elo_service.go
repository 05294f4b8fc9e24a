package service

import (
	"math"

	"github.com/chessedu/chessedu-backend/internal/models"
)

// ELOService ELO 레이팅 계산 서비스
type ELOService struct{}

// NewELOService ELO 서비스 생성
func NewELOService() *ELOService {
	return &ELOService{}
}

// KFactor returns the K-factor for a rating band:
// 32 below 2100, 24 below 2400, 16 from 2400 up.
func (s *ELOService) KFactor(rating int) float64 {
	if rating < 2100 {
		return 32
	} else if rating < 2400 {
		return 24
	}
	return 16
}

// EloUpdate 한 플레이어의 새 레이팅 계산
// score: 1 (승), 0.5 (무승부), 0 (패)
func (s *ELOService) EloUpdate(playerRating, opponentRating int, score float64) int {
	expected := s.expectedScore(float64(playerRating), float64(opponentRating))
	newRating := math.Round(float64(playerRating) + s.KFactor(playerRating)*(score-expected))
	if math.IsNaN(newRating) {
		return models.ClampRating(playerRating)
	}

	// int 변환 전에 범위를 제한해야 극단값에서 overflow가 나지 않음
	newRating = math.Max(models.MinRating, math.Min(models.MaxRating, newRating))
	return int(newRating)
}

// ScoresFor 게임 결과를 레이팅용 점수로 변환. 레이팅에 반영할 결과가 아니면 ok=false
//
// STALEMATE has no explicit score in the rating rules; it is scored as a draw.
func (s *ELOService) ScoresFor(result models.GameResult) (white, black float64, ok bool) {
	switch result {
	case models.GameResultWhiteWin:
		return 1, 0, true
	case models.GameResultBlackWin:
		return 0, 1, true
	case models.GameResultDraw, models.GameResultStalemate:
		return 0.5, 0.5, true
	}
	return 0, 0, false
}

// CalculateNewRatings 두 플레이어의 새 레이팅 계산 (둘 다 게임 전 레이팅 기준)
func (s *ELOService) CalculateNewRatings(whiteRating, blackRating int, result models.GameResult) (newWhite, newBlack int, ok bool) {
	whiteScore, blackScore, ok := s.ScoresFor(result)
	if !ok {
		return whiteRating, blackRating, false
	}

	newWhite = s.EloUpdate(whiteRating, blackRating, whiteScore)
	newBlack = s.EloUpdate(blackRating, whiteRating, blackScore)
	return newWhite, newBlack, true
}

// expectedScore ELO에 기반한 기대 승률 계산
func (s *ELOService) expectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}
