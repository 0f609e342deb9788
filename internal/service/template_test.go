package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cadrimiranda/rubia-sub000/internal/model"
	"github.com/cadrimiranda/rubia-sub000/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	donor := &model.Donor{
		Name:      "Ana",
		Phone:     "5511987650001",
		City:      "São Paulo",
		State:     "SP",
		BloodType: "O-",
		Email:     "ana@example.com",
	}
	now := time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)

	t.Run("substitutes donor fields", func(t *testing.T) {
		out := service.RenderTemplate("Olá {{NAME}}, estoque {{BLOOD_TYPE}} baixo em {{CITY}}/{{STATE}}", donor, now)
		assert.Equal(t, "Olá Ana, estoque O- baixo em São Paulo/SP", out)
	})

	t.Run("bilingual aliases resolve to the same value", func(t *testing.T) {
		en := service.RenderTemplate("{{NAME}} {{CITY}} {{BLOOD_TYPE}}", donor, now)
		pt := service.RenderTemplate("{{NOME}} {{CIDADE}} {{TIPO_SANGUINEO}}", donor, now)
		assert.Equal(t, en, pt)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		out := service.RenderTemplate("{{name}} {{Name}} {{NAME}}", donor, now)
		assert.Equal(t, "Ana Ana Ana", out)
	})

	t.Run("unknown placeholders pass through verbatim", func(t *testing.T) {
		out := service.RenderTemplate("Hi {{NAME}}, visit {{UNKNOWN}}", donor, now)
		assert.Equal(t, "Hi Ana, visit {{UNKNOWN}}", out)
	})

	t.Run("missing fields render as empty string", func(t *testing.T) {
		out := service.RenderTemplate("Hi {{NAME}}!", &model.Donor{}, now)
		assert.Equal(t, "Hi !", out)
	})

	t.Run("nil donor never panics", func(t *testing.T) {
		out := service.RenderTemplate("Hi {{NAME}}", nil, now)
		assert.Equal(t, "Hi ", out)
	})

	t.Run("date and time placeholders use render time", func(t *testing.T) {
		out := service.RenderTemplate("{{DATA}} às {{HORA}}", donor, now)
		assert.Equal(t, "14/06/2025 às 09:30", out)
	})

	t.Run("idempotent without placeholders", func(t *testing.T) {
		text := "plain text, no placeholders"
		assert.Equal(t, text, service.RenderTemplate(text, donor, now))
	})

	t.Run("deterministic for fixed inputs", func(t *testing.T) {
		tpl := "Olá {{NOME}}, {{CIDADE}} precisa de {{TIPO_SANGUINEO}}"
		first := service.RenderTemplate(tpl, donor, now)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, service.RenderTemplate(tpl, donor, now))
		}
	})

	t.Run("whitespace inside braces is tolerated", func(t *testing.T) {
		out := service.RenderTemplate("Hi {{ NAME }}", donor, now)
		assert.Equal(t, "Hi Ana", out)
	})
}
