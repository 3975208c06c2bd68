package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/UNI-Final-Project/api-multimodal-ai/config"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/agent/llm"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/store"
	"github.com/UNI-Final-Project/api-multimodal-ai/pkg/logger"
)

const (
	Temperature    = 0.7
	recentDays     = 7
	memoryMessages = 5
	DefaultName    = "Usuario"
)

// Metadata describes how a reply was produced.
type Metadata struct {
	Timestamp           time.Time `json:"timestamp"`
	UserName            string    `json:"user_name"`
	Model               string    `json:"model"`
	ContextAvailable    bool      `json:"context_available"`
	MemoryMessagesCount int       `json:"memory_messages_count"`
}

// UserContext is what the chatbot knows about a user before answering.
type UserContext struct {
	UserName string
	Metrics  *models.UserMetrics
	Today    *models.DailyNutrition
	Recent   []*models.DailyNutrition
}

// Chatbot gives personalised nutrition advice with conversation memory.
type Chatbot struct {
	store   store.Store
	backend llm.Backend
	gen     config.GenerationConfig
	logger  logger.Logger
	now     func() time.Time
}

func NewChatbot(st store.Store, backend llm.Backend, gen config.GenerationConfig, log logger.Logger) *Chatbot {
	return &Chatbot{
		store:   st,
		backend: backend,
		gen:     gen,
		logger:  log.Named("chat"),
		now:     time.Now,
	}
}

// Chat answers message for userID and appends both turns to the history.
func (c *Chatbot) Chat(ctx context.Context, userID, userName, message string) (string, *Metadata, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", nil, errors.New("message is empty")
	}
	if userName == "" {
		userName = DefaultName
	}
	ctx = logger.WithUserID(ctx, userID)
	log := logger.FromContext(ctx, c.logger)

	uc, history, err := c.loadContext(ctx, userID, userName)
	if err != nil {
		return "", nil, err
	}

	req := &llm.GenerateRequest{
		Model:           c.gen.Model,
		Temperature:     Temperature,
		MaxOutputTokens: c.gen.MaxOutputTokens,
		TopP:            c.gen.TopP,
		TopK:            c.gen.TopK,
		Parts: []llm.Part{
			llm.Text(SystemPrompt(uc)),
			llm.Text(renderConversation(history, message)),
		},
	}
	reply, err := c.backend.Generate(ctx, req)
	if err != nil {
		log.Error("Chat generation failed", logger.Error(err))
		return "", nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	if _, err := c.store.SaveConversationMessage(ctx, userID, models.RoleUser, message); err != nil {
		log.Warn("Failed to save user message", logger.Error(err))
	}
	if _, err := c.store.SaveConversationMessage(ctx, userID, models.RoleAssistant, reply); err != nil {
		log.Warn("Failed to save assistant message", logger.Error(err))
	}

	meta := &Metadata{
		Timestamp:           c.now().UTC(),
		UserName:            userName,
		Model:               c.gen.Model,
		ContextAvailable:    uc.Metrics != nil,
		MemoryMessagesCount: len(history),
	}
	log.Info("Chat reply generated",
		logger.Bool("context_available", meta.ContextAvailable),
		logger.Int("memory_messages", meta.MemoryMessagesCount),
		logger.Int("reply_length", len(reply)),
	)
	return reply, meta, nil
}

// loadContext fetches metrics, recent days, today and memory concurrently.
// Missing metrics or today's record are not errors.
func (c *Chatbot) loadContext(ctx context.Context, userID, userName string) (*UserContext, []*models.ConversationMessage, error) {
	uc := &UserContext{UserName: userName}
	var history []*models.ConversationMessage
	today := c.now().Format(models.DateLayout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := c.store.GetUserMetrics(gctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load user metrics: %w", err)
		}
		uc.Metrics = m
		return nil
	})
	g.Go(func() error {
		recent, err := c.store.GetDailyNutrition(gctx, userID, recentDays)
		if err != nil {
			return fmt.Errorf("failed to load recent nutrition: %w", err)
		}
		uc.Recent = recent
		return nil
	})
	g.Go(func() error {
		rec, err := c.store.GetNutritionByDate(gctx, userID, today)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load today's nutrition: %w", err)
		}
		uc.Today = rec
		return nil
	})
	g.Go(func() error {
		h, err := c.store.GetConversationHistory(gctx, userID, memoryMessages)
		if err != nil {
			logger.FromContext(ctx, c.logger).Warn("Failed to load conversation history", logger.Error(err))
			return nil
		}
		history = h
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return uc, history, nil
}

// SystemPrompt renders the advisor instructions followed by the user context.
func SystemPrompt(uc *UserContext) string {
	var b strings.Builder
	b.WriteString(`Eres un experto nutricionista y asistente de salud personalizado.
Tu rol es:
1. Recomendar comidas y alimentos que ayuden a cumplir los objetivos de nutrición
2. Sugerir opciones de alimentos balanceados basado en lo que ya consumió hoy
3. Ser amable, motivador y proporcionar consejos prácticos
4. Considerar siempre los objetivos nutricionales del usuario
5. Sugerir alternativas saludables y deliciosas
`)
	b.WriteString(FormatContext(uc))
	b.WriteString(`
Responde siempre en español de manera amigable y profesional.
Proporciona recomendaciones específicas basadas en los datos del usuario.`)
	return b.String()
}

// FormatContext renders metrics, BMI and what is left of today's goals.
func FormatContext(uc *UserContext) string {
	var b strings.Builder
	b.WriteString("\n=== CONTEXTO DEL USUARIO ===\n")
	fmt.Fprintf(&b, "Nombre: %s\n", uc.UserName)

	m := uc.Metrics
	if m == nil {
		b.WriteString("\nSin métricas registradas todavía.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nMÉTRICAS PERSONALES:\n- Peso: %g kg\n- Altura: %g cm\n", m.Weight, m.Height)
	if bmi := m.BMI(); bmi > 0 {
		fmt.Fprintf(&b, "- IMC: %.1f\n", bmi)
	}
	fmt.Fprintf(&b, "\nOBJETIVOS DIARIOS:\n- Calorías: %g kcal\n- Proteína: %gg\n- Carbohidratos: %gg\n- Grasas: %gg\n",
		m.CalorieGoal, m.ProteinGoal, m.CarbsGoal, m.FatGoal)

	if t := uc.Today; t != nil {
		fmt.Fprintf(&b, "\nCONSUMO DE HOY (%s):\n", t.Date)
		fmt.Fprintf(&b, "- Calorías consumidas: %g kcal (Falta: %.0f kcal)\n", t.Calories, m.CalorieGoal-t.Calories)
		fmt.Fprintf(&b, "- Proteína: %gg (Falta: %.0fg)\n", t.Protein, m.ProteinGoal-t.Protein)
		fmt.Fprintf(&b, "- Carbohidratos: %gg (Falta: %.0fg)\n", t.Carbs, m.CarbsGoal-t.Carbs)
		fmt.Fprintf(&b, "- Grasas: %gg (Falta: %.0fg)\n", t.Fat, m.FatGoal-t.Fat)
	}

	if len(uc.Recent) > 0 {
		b.WriteString("\nÚLTIMOS DÍAS:\n")
		for _, d := range uc.Recent {
			fmt.Fprintf(&b, "- %s: %g kcal, %gg proteína, %gg carbohidratos, %gg grasas\n",
				d.Date, d.Calories, d.Protein, d.Carbs, d.Fat)
		}
	}
	return b.String()
}

func renderConversation(history []*models.ConversationMessage, message string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversación previa:\n")
		for _, msg := range history {
			speaker := "Asistente"
			if msg.MessageType == models.RoleUser {
				speaker = "Usuario"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Usuario: %s", message)
	return b.String()
}
