package engine

import (
	"math/rand"

	"gorm.io/gorm"

	"github.com/PolDiaz18/nexotime/models"
)

var defaultQuotes = []models.Quote{
	{Text: "La disciplina es el puente entre metas y logros.", Author: "Jim Rohn"},
	{Text: "No se trata de ser perfecto, se trata de ser constante."},
	{Text: "Cada día es una nueva oportunidad para ser mejor que ayer."},
	{Text: "Los hábitos son el interés compuesto de la mejora personal.", Author: "James Clear"},
	{Text: "La motivación te pone en marcha, la disciplina te mantiene en movimiento."},
	{Text: "Usted no necesita ser extremo, solo necesita ser constante."},
	{Text: "El éxito es la suma de pequeños esfuerzos repetidos día tras día.", Author: "Robert Collier"},
	{Text: "No cuente los días, haga que los días cuenten.", Author: "Muhammad Ali"},
	{Text: "La mejor hora para plantar un árbol fue hace 20 años. La segunda mejor es ahora."},
	{Text: "Somos lo que hacemos repetidamente. La excelencia no es un acto, es un hábito.", Author: "Aristóteles"},
	{Text: "El dolor de la disciplina pesa gramos. El dolor del arrepentimiento pesa toneladas."},
	{Text: "Primero formamos nuestros hábitos, luego nuestros hábitos nos forman a nosotros.", Author: "John Dryden"},
	{Text: "Un viaje de mil kilómetros comienza con un solo paso.", Author: "Lao Tse"},
	{Text: "No es lo que hacemos de vez en cuando lo que cuenta, sino lo que hacemos constantemente.", Author: "Tony Robbins"},
	{Text: "La constancia es la madre de la maestría."},
	{Text: "Pequeñas acciones diarias suman grandes resultados."},
	{Text: "Hoy es un buen día para ser mejor."},
	{Text: "Su único competidor es usted mismo ayer."},
	{Text: "El progreso, no la perfección, es lo que importa."},
	{Text: "Cada hábito completado es un voto por la persona que quiere ser.", Author: "James Clear"},
}

// SeedQuotes fills the quote table once, on first boot of an empty database.
func SeedQuotes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Quote{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, q := range defaultQuotes {
		quote := q
		quote.Category = "general"
		if err := db.Create(&quote).Error; err != nil {
			return err
		}
	}
	return nil
}

// RandomQuote returns a random motivational quote, with a fixed fallback
// when the table is empty.
func (e *Engine) RandomQuote() (*models.Quote, error) {
	var quotes []models.Quote
	if err := e.db.Find(&quotes).Error; err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return &models.Quote{Text: "Cada día es una oportunidad."}, nil
	}
	return &quotes[rand.Intn(len(quotes))], nil
}
