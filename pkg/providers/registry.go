package providers

import (
	"fmt"
	"sync"
)

// Registry 翻译器注册表，保持注册顺序
type Registry struct {
	mu          sync.RWMutex
	translators map[string]Translator
	order       []string
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		translators: make(map[string]Translator),
	}
}

// Register 注册翻译器
func (r *Registry) Register(translator Translator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid := translator.UID()
	if _, exists := r.translators[uid]; exists {
		return fmt.Errorf("translator %s already registered", uid)
	}

	r.translators[uid] = translator
	r.order = append(r.order, uid)
	return nil
}

// Get 获取翻译器
func (r *Registry) Get(uid string) (Translator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	translator, exists := r.translators[uid]
	if !exists {
		return nil, fmt.Errorf("translator %s not found", uid)
	}

	return translator, nil
}

// Resolve 获取翻译器，找不到时回退到第一个注册的翻译器
func (r *Registry) Resolve(uid string) (Translator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if translator, exists := r.translators[uid]; exists {
		return translator, nil
	}
	if len(r.order) == 0 {
		return nil, ErrUnknownTranslator
	}
	return r.translators[r.order[0]], nil
}

// List 按注册顺序列出所有翻译器
func (r *Registry) List() []Translator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Translator, 0, len(r.order))
	for _, uid := range r.order {
		list = append(list, r.translators[uid])
	}

	return list
}

// Len 注册的翻译器数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}
