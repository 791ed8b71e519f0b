package dbconn

import "gorm.io/gorm"

// GormWrapper narrows the gorm chain API down to what the repositories
// use, so queries can run against either a live connection or the mock.
type GormWrapper interface {
	Error() error
	AutoMigrate(m interface{}) error
	Create(value interface{}) GormWrapper
	Where(query interface{}, args ...interface{}) GormWrapper
	First(dest interface{}, conds ...interface{}) GormWrapper
	Order(value interface{}) GormWrapper
	Limit(limit int) GormWrapper
	Find(dest interface{}, conds ...interface{}) GormWrapper
}

type wrapper struct {
	db  *gorm.DB
	tx  *gorm.DB
	err error
}

func Wrap(db *gorm.DB) GormWrapper {
	return &wrapper{db: db}
}

// chain returns the statement under construction. The first builder
// call after a finished query starts from the root connection again so
// conditions never leak between queries.
func (w *wrapper) chain() *gorm.DB {
	if w.tx == nil {
		return w.db
	}
	return w.tx
}

func (w *wrapper) finish(tx *gorm.DB) {
	w.err = tx.Error
	w.tx = nil
}

func (w *wrapper) Error() error {
	return w.err
}

func (w *wrapper) AutoMigrate(m interface{}) error {
	return w.db.AutoMigrate(m)
}

func (w *wrapper) Create(value interface{}) GormWrapper {
	w.finish(w.chain().Create(value))
	return w
}

func (w *wrapper) Where(query interface{}, args ...interface{}) GormWrapper {
	w.tx = w.chain().Where(query, args...)
	return w
}

func (w *wrapper) First(dest interface{}, conds ...interface{}) GormWrapper {
	w.finish(w.chain().First(dest, conds...))
	return w
}

func (w *wrapper) Order(value interface{}) GormWrapper {
	w.tx = w.chain().Order(value)
	return w
}

func (w *wrapper) Limit(limit int) GormWrapper {
	w.tx = w.chain().Limit(limit)
	return w
}

func (w *wrapper) Find(dest interface{}, conds ...interface{}) GormWrapper {
	w.finish(w.chain().Find(dest, conds...))
	return w
}
