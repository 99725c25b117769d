package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"aerialdetect/internal/model"
	"aerialdetect/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/predictions.db", "Database path")
	modelID := flag.String("model", "", "Only show predictions made with this model")
	className := flag.String("class", "", "Only show predictions containing this class")
	limit := flag.Int("limit", 20, "Number of recent predictions to list")
	id := flag.Int64("id", 0, "Show the detections of one prediction")
	flag.Parse()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewPredictionRepository(db)

	if *id > 0 {
		showPrediction(repo, *id)
		return
	}

	stats, err := repo.GetStats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Printf("Predictions: %d, objects: %d\n", stats.TotalPredictions, stats.TotalObjects)
	for _, name := range sortedKeys(stats.PerModel) {
		fmt.Printf("  %-12s %d\n", name, stats.PerModel[name])
	}
	if len(stats.ClassCounts) > 0 {
		fmt.Println("Top classes:")
		for _, name := range sortedKeys(stats.ClassCounts) {
			fmt.Printf("  %-12s %d\n", name, stats.ClassCounts[name])
		}
	}

	predictions, err := repo.GetAll(&model.PredictionFilter{
		Model:     *modelID,
		ClassName: *className,
		Limit:     *limit,
	})
	if err != nil {
		log.Fatalf("Failed to list predictions: %v", err)
	}
	if len(predictions) == 0 {
		fmt.Println("No predictions recorded")
		return
	}

	fmt.Printf("\nLatest %d predictions:\n", len(predictions))
	for _, p := range predictions {
		fmt.Printf("#%-5d %s  %-10s %-24s %4dx%-4d %d objects\n",
			p.ID, p.Timestamp.Format("2006-01-02 15:04:05"), p.Model, p.Filename, p.Width, p.Height, p.ObjectCount)
	}
}

func showPrediction(repo *sqlite.PredictionRepository, id int64) {
	p, err := repo.GetByID(id)
	if err != nil {
		log.Fatalf("Failed to read prediction: %v", err)
	}
	if p == nil {
		log.Fatalf("Prediction %d not found", id)
	}

	objects, err := repo.GetObjectsByPredictionID(id)
	if err != nil {
		log.Fatalf("Failed to read detections: %v", err)
	}

	fmt.Printf("#%d %s  %s  %s  %dx%d  session %s\n",
		p.ID, p.Timestamp.Format("2006-01-02 15:04:05"), p.Model, p.Filename, p.Width, p.Height, p.SessionID)
	for i, o := range objects {
		fmt.Printf("  %3d  %-12s %.2f  (%d,%d)-(%d,%d)\n", i+1, o.ClassName, o.Confidence, o.X1, o.Y1, o.X2, o.Y2)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
