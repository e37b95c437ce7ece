// Package orchestrator управляет жизненным циклом заказов.
//
// Orchestrator отвечает за:
//   - Переходы state machine заказа (transition.go)
//   - Отправку training и inference jobs провайдеру (submit.go)
//   - Агрегацию результатов inference batch (aggregate.go)
//   - Проверку заказа по команде из очереди (CheckOrder)
//   - Сохранение артефактов и уведомления о финальных статусах
//
// Переходы выражены чистыми функциями без очередей и таймеров —
// их можно тестировать на голых значениях. Вся работа с провайдером
// и БД собрана в Orchestrator, который вызывается Check Worker'ом.
package orchestrator
