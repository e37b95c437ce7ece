// Package cli реализует административный инструмент командной строки.
//
// # Обзор
//
// CLI работает напрямую с базой данных и провайдером — отдельного
// API-сервера у системы нет. Команды используются операторами для
// просмотра заказов и ручного восстановления после сбоев.
//
// # Ключевые компоненты
//
// ## Deps
//
// Зависимости команд: репозитории, оркестратор и функция закрытия
// соединений. Создаются лениво через depsFn — замыкание, которое
// main.go строит после парсинга PersistentFlags.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.Encoder с отступами) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: petstudio order list --json | jq .
//
// ## Commands
//
// Команды сгруппированы под ресурсом order:
//   - create            — создать заказ из ZIP с фотографиями
//   - list              — последние заказы
//   - show              — заказ + sub-jobs текущего batch + артефакты
//   - check             — выполнить одну проверку вручную (без MQ)
//   - restart           — перезапуск с обучения
//   - restart-inference — новый inference batch на обученной модели
//   - upload-results    — дозалить пропущенные артефакты в storage
package cli
