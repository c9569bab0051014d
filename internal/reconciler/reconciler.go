// Package reconciler вычисляет, какие экземпляры подписки истекли, какой
// экземпляр остаётся активным и каким должен быть флаг subscribed.
//
// Пакет не выполняет ввода-вывода и не хранит состояния: одна и та же функция
// используется при обновлении по запросу и в периодическом проходе.
package reconciler

import (
	"sort"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// Decision — результат сверки набора экземпляров одного аккаунта.
type Decision struct {
	Keep       []models.Instance // end_date > now
	Expire     []models.Instance // end_date <= now, подлежат удалению
	NewActive  *models.Instance  // nil, если активной подписки не осталось
	Subscribed bool
}

// Reconcile сверяет экземпляры аккаунта на момент now.
//
// Текущий активный экземпляр сохраняется, если он не истёк. Иначе из
// оставшихся выбирается экземпляр с максимальной ценой плана, при равенстве
// цен берётся начавшийся раньше.
func Reconcile(now time.Time, instances []models.Instance, currentActive *int64) Decision {
	var d Decision
	for _, inst := range instances {
		if inst.Expired(now) {
			d.Expire = append(d.Expire, inst)
			continue
		}
		d.Keep = append(d.Keep, inst)
	}

	if currentActive != nil {
		for i := range d.Keep {
			if d.Keep[i].ID == *currentActive {
				active := d.Keep[i]
				d.NewActive = &active
				break
			}
		}
	}
	if d.NewActive == nil {
		d.NewActive = pickHighestPrice(d.Keep)
	}

	d.Subscribed = d.NewActive != nil && len(d.Keep) > 0
	return d
}

func pickHighestPrice(keep []models.Instance) *models.Instance {
	if len(keep) == 0 {
		return nil
	}
	candidates := make([]models.Instance, len(keep))
	copy(candidates, keep)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PlanPrice != candidates[j].PlanPrice {
			return candidates[i].PlanPrice > candidates[j].PlanPrice
		}
		return candidates[i].StartDate.Before(candidates[j].StartDate)
	})
	best := candidates[0]
	return &best
}

// NewActiveID возвращает идентификатор нового активного экземпляра или nil.
func (d Decision) NewActiveID() *int64 {
	if d.NewActive == nil {
		return nil
	}
	id := d.NewActive.ID
	return &id
}

// ExpiredIDs возвращает идентификаторы экземпляров на удаление.
func (d Decision) ExpiredIDs() []int64 {
	ids := make([]int64, 0, len(d.Expire))
	for _, inst := range d.Expire {
		ids = append(ids, inst.ID)
	}
	return ids
}

// Changed сообщает, требует ли решение записи в хранилище для аккаунта
// с текущими значениями active и subscribed.
func (d Decision) Changed(currentActive *int64, subscribed bool) bool {
	if len(d.Expire) > 0 || d.Subscribed != subscribed {
		return true
	}
	next := d.NewActiveID()
	switch {
	case next == nil && currentActive == nil:
		return false
	case next == nil || currentActive == nil:
		return true
	default:
		return *next != *currentActive
	}
}
