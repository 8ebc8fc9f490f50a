package database

import (
	"encoding/json"
	"fmt"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/database/models"
)

// MenuSeed is the fixture file layout, one array per table.
type MenuSeed struct {
	Restaurants          []models.Restaurant          `json:"restaurants"`
	Categories           []models.Category            `json:"categories"`
	Dishes               []models.Dish                `json:"dishes"`
	DishCategories       []models.DishCategory        `json:"dish_categories"`
	ComplementGroups     []models.ComplementGroup     `json:"complement_groups"`
	DishComplementGroups []models.DishComplementGroup `json:"dish_complement_groups"`
	Complements          []models.Complement          `json:"complements"`
}

func LoadMenuSeed(path string) (*MenuSeed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed %s: %w", path, err)
	}
	var seed MenuSeed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("failed to decode seed %s: %w", path, err)
	}
	return &seed, nil
}

// SeedMenuDB inserts the seed in one transaction. Rows whose key already
// exists are left untouched.
func SeedMenuDB(db *gorm.DB, seed *MenuSeed) error {
	return db.Transaction(func(tx *gorm.DB) error {
		batches := []struct {
			table string
			rows  interface{}
			n     int
		}{
			{models.TableRestaurants, &seed.Restaurants, len(seed.Restaurants)},
			{models.TableCategories, &seed.Categories, len(seed.Categories)},
			{models.TableDishes, &seed.Dishes, len(seed.Dishes)},
			{models.TableDishCategories, &seed.DishCategories, len(seed.DishCategories)},
			{models.TableComplementGroups, &seed.ComplementGroups, len(seed.ComplementGroups)},
			{models.TableDishComplementGroups, &seed.DishComplementGroups, len(seed.DishComplementGroups)},
			{models.TableComplements, &seed.Complements, len(seed.Complements)},
		}
		for _, b := range batches {
			if b.n == 0 {
				continue
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(b.rows).Error; err != nil {
				return fmt.Errorf("failed to seed %s: %w", b.table, err)
			}
		}
		return nil
	})
}
