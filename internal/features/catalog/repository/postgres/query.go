package postgres

import (
	"fmt"
	"strings"

	"avastore-backend/internal/features/catalog/models"
)

// listQuery собирает WHERE только из плейсхолдеров $n; сортировка берется из белого списка
type listQuery struct {
	where []string
	args  []interface{}
}

func (q *listQuery) add(cond string, arg interface{}) {
	q.args = append(q.args, arg)
	q.where = append(q.where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(q.args))))
}

func buildListQuery(filter models.ProductFilter) (selectSQL, countSQL string, args []interface{}) {
	filter.Normalize()

	q := &listQuery{where: []string{"is_active = true"}}

	if filter.CategoryID != nil {
		q.add("category_id = ?", *filter.CategoryID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q.add("(name ILIKE ? OR description ILIKE ?)", "%"+escapeLike(search)+"%")
	}
	if filter.MinPrice != nil {
		q.add("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q.add("price <= ?", *filter.MaxPrice)
	}

	where := strings.Join(q.where, " AND ")
	countSQL = "SELECT COUNT(*) FROM products WHERE " + where

	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	column := models.SortColumns[filter.Sort]

	args = append(q.args, filter.Limit, filter.Offset())
	selectSQL = fmt.Sprintf("SELECT %s FROM products WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		productColumns, where, column, direction, direction, len(q.args)+1, len(q.args)+2)

	return selectSQL, countSQL, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
