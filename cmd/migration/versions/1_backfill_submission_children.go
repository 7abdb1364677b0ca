package versions

import (
	"log"
	"school_platform/school/schema"

	"gorm.io/gorm"
)

/*
 * The previous backend stored submissions and completions without a child
 * link, relying on the parent account alone. This migration backfills the
 * child reference and collapses duplicate rows so the unique
 * (homework, parent, child) constraint can be applied.
 */

func dropIndexes(model interface{}, txn *gorm.DB, indexes ...string) error {
	for _, idx := range indexes {
		if !txn.Migrator().HasIndex(model, idx) {
			continue
		}
		if err := txn.Migrator().DropIndex(model, idx); err != nil {
			return err
		}
	}
	return nil
}

// backfillChildId assigns each row missing a child to the parent's oldest
// registered child. Rows belonging to parents with no children cannot be
// attributed and are dropped.
func backfillChildId(txn *gorm.DB, table string) error {
	err := txn.Exec(`
		UPDATE ` + table + ` SET child_id = (
			SELECT children.id FROM children
			WHERE children.parent_id = ` + table + `.parent_id
			ORDER BY children.id LIMIT 1
		)
		WHERE child_id IS NULL`).Error
	if err != nil {
		return err
	}

	result := txn.Exec(`DELETE FROM ` + table + ` WHERE child_id IS NULL`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("dropped %d unattributable rows from %s", result.RowsAffected, table)
	}

	return nil
}

// dedupeTriples keeps only the most recent row for each
// (homework_id, parent_id, child_id) so the unique index can be created.
func dedupeTriples(txn *gorm.DB, table, orderColumn string) error {
	return txn.Exec(`
		DELETE FROM ` + table + ` WHERE id NOT IN (
			SELECT keep.id FROM (
				SELECT DISTINCT ON (homework_id, parent_id, child_id) id
				FROM ` + table + `
				ORDER BY homework_id, parent_id, child_id, ` + orderColumn + ` DESC
			) AS keep
		)`).Error
}

func Migration_1_backfill_submission_children(txn *gorm.DB) error {
	if err := backfillChildId(txn, "submissions"); err != nil {
		return err
	}
	if err := backfillChildId(txn, "homework_completions"); err != nil {
		return err
	}

	if err := dedupeTriples(txn, "submissions", "submitted_at"); err != nil {
		return err
	}
	if err := dedupeTriples(txn, "homework_completions", "updated_at"); err != nil {
		return err
	}

	if err := dropIndexes(&schema.Submission{}, txn, "ix_submissions_homework_id", "ix_submissions_parent_id"); err != nil {
		return err
	}
	if err := dropIndexes(&schema.HomeworkCompletion{}, txn, "ix_homework_completions_homework_id"); err != nil {
		return err
	}

	return txn.AutoMigrate(&schema.Submission{}, &schema.HomeworkCompletion{})
}
