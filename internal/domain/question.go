package domain

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// количество вопросов в матче и вариантов ответа
const (
	QuestionsPerMatch  = 10
	OptionsPerQuestion = 4
)

// Band - группа вопросов одной сложности внутри матча
type Band struct {
	Difficulty Difficulty
	Size       int
}

// MatchBands задает кривую сложности: 4 easy, 4 medium, 2 hard - порядок фиксирован
var MatchBands = []Band{
	{Difficulty: DifficultyEasy, Size: 4},
	{Difficulty: DifficultyMedium, Size: 4},
	{Difficulty: DifficultyHard, Size: 2},
}

// Вопрос из банка. CorrectIndex никогда не уходит клиенту
type Question struct {
	ID           string                     `db:"id" json:"id"`
	Category     string                     `db:"category" json:"category"`
	Difficulty   Difficulty                 `db:"difficulty" json:"difficulty"`
	Text         string                     `db:"text" json:"text"`
	Options      [OptionsPerQuestion]string `json:"options"`
	CorrectIndex int                        `db:"correct_index" json:"-"`
}

// Вопрос в составе матча
type MatchQuestion struct {
	QuestionID string     `json:"questionId"`
	Difficulty Difficulty `json:"difficulty"`
	Order      int        `json:"order"` // 1..10
}

// QuestionView - то, что видит клиент в match_start
type QuestionView struct {
	ID         string                     `json:"id"`
	Order      int                        `json:"order"`
	Difficulty Difficulty                 `json:"difficulty"`
	Text       string                     `json:"text"`
	Options    [OptionsPerQuestion]string `json:"options"`
}

func (q Question) View(order int) QuestionView {
	return QuestionView{
		ID:         q.ID,
		Order:      order,
		Difficulty: q.Difficulty,
		Text:       q.Text,
		Options:    q.Options,
	}
}
