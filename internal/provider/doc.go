// Package provider — тонкий HTTP-клиент внешнего job API.
//
// Провайдер — асинхронный сервис выполнения ML jobs (обучение и
// inference) с двумя endpoint'ами:
//   - POST /predictions      — создать job
//   - GET  /predictions/{id} — получить статус job
//
// Push-уведомлений у провайдера нет: единственный способ узнать о
// завершении — периодически опрашивать GetJob. GetJob идемпотентен
// и может вызываться с одним и тем же id сколько угодно раз.
//
// Статусы: starting → processing → succeeded | failed | canceled.
package provider
